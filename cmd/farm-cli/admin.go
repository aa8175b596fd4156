package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func runAdminCommand(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	rest := args[1:]
	switch args[0] {
	case "create-package":
		return runPackageMutation(cli, "create-package", rest, stdout, stderr)
	case "update-package":
		return runPackageMutation(cli, "update-package", rest, stdout, stderr)
	case "set-apy":
		return runSetAPY(cli, rest, stdout, stderr)
	case "set-active":
		return runSetActive(cli, rest, stdout, stderr)
	case "max-apy":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: farm-cli admin max-apy <bps>")
			return 1
		}
		bps, ok := parseIndex(stderr, rest[0], "basis points")
		if !ok {
			return 1
		}
		return emit(cli.post("/v1/admin/max-apy", map[string]uint64{"maxApyBps": bps}))(stdout, stderr)
	case "fees":
		if len(rest) != 2 {
			fmt.Fprintln(stderr, "Usage: farm-cli admin fees <bps> <receiver>")
			return 1
		}
		bps, ok := parseIndex(stderr, rest[0], "basis points")
		if !ok {
			return 1
		}
		body := map[string]interface{}{"feeBps": bps, "feeReceiver": strings.TrimSpace(rest[1])}
		return emit(cli.post("/v1/admin/fees", body))(stdout, stderr)
	case "fund":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: farm-cli admin fund <amount>")
			return 1
		}
		return emit(cli.post("/v1/admin/pool/fund", map[string]string{"amount": strings.TrimSpace(rest[0])}))(stdout, stderr)
	case "pause", "unpause":
		if len(rest) != 0 {
			fmt.Fprintf(stderr, "Usage: farm-cli admin %s\n", args[0])
			return 1
		}
		return emit(cli.post("/v1/admin/"+args[0], struct{}{}))(stdout, stderr)
	case "transfer-ownership":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: farm-cli admin transfer-ownership <address>")
			return 1
		}
		return emit(cli.post("/v1/admin/ownership", map[string]string{"owner": strings.TrimSpace(rest[0])}))(stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown admin subcommand: %s\n", args[0])
		return 1
	}
}

func runPackageMutation(cli *client, name string, args []string, stdout, stderr io.Writer) int {
	update := name == "update-package"
	var id uint64
	if update {
		if len(args) == 0 {
			fmt.Fprintln(stderr, "Usage: farm-cli admin update-package <id> [flags]")
			return 1
		}
		parsed, ok := parseIndex(stderr, args[0], "package id")
		if !ok {
			return 1
		}
		id, args = parsed, args[1:]
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	pkgName := fs.String("name", "", "package name")
	stakeToken := fs.String("stake-token", "", "token accepted for staking")
	lock := fs.Uint64("lock", 0, "lock duration in seconds")
	apy := fs.Uint64("apy", 0, "annual yield in basis points")
	minStake := fs.String("min-stake", "0", "minimum stake amount")
	inactive := fs.Bool("inactive", false, "create the package disabled")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*stakeToken) == "" {
		fmt.Fprintln(stderr, "Error: --stake-token is required")
		return 1
	}
	active := !*inactive
	body := map[string]interface{}{
		"name":         *pkgName,
		"stakeToken":   *stakeToken,
		"lockDuration": *lock,
		"apyBps":       *apy,
		"minStake":     *minStake,
		"active":       active,
	}
	if update {
		return emit(cli.put(fmt.Sprintf("/v1/packages/%d", id), body))(stdout, stderr)
	}
	return emit(cli.post("/v1/packages", body))(stdout, stderr)
}

func runSetAPY(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "Usage: farm-cli admin set-apy <id> <bps>")
		return 1
	}
	id, ok := parseIndex(stderr, args[0], "package id")
	if !ok {
		return 1
	}
	bps, ok := parseIndex(stderr, args[1], "basis points")
	if !ok {
		return 1
	}
	return emit(cli.post(fmt.Sprintf("/v1/packages/%d/apy", id), map[string]uint64{"apyBps": bps}))(stdout, stderr)
}

func runSetActive(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "Usage: farm-cli admin set-active <id> <true|false>")
		return 1
	}
	id, ok := parseIndex(stderr, args[0], "package id")
	if !ok {
		return 1
	}
	active, err := strconv.ParseBool(strings.TrimSpace(args[1]))
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid flag value %q\n", args[1])
		return 1
	}
	return emit(cli.post(fmt.Sprintf("/v1/packages/%d/active", id), map[string]bool{"active": active}))(stdout, stderr)
}
