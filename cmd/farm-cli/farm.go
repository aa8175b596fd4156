package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
)

type command func(cli *client, args []string, stdout, stderr io.Writer) int

var farmCommands = map[string]command{
	"params":           simpleGet("params", "/v1/params"),
	"pool":             simpleGet("pool", "/v1/pool"),
	"packages":         runPackages,
	"stakes":           runStakes,
	"stake-info":       runStakeInfo,
	"reward":           runReward,
	"pending":          runPending,
	"balance":          runBalance,
	"allowance":        runAllowance,
	"receipts":         runReceipts,
	"receipt":          runReceipt,
	"stake":            runStake,
	"claim":            stakeAction("claim"),
	"compound":         stakeAction("compound"),
	"toggle-auto":      stakeAction("toggle-auto"),
	"withdraw":         stakeAction("withdraw"),
	"withdraw-rewards": runWithdrawRewards,
	"approve":          runApprove,
	"transfer":         runTransfer,
}

func simpleGet(name, path string) command {
	return func(cli *client, args []string, stdout, stderr io.Writer) int {
		if len(args) != 0 {
			fmt.Fprintf(stderr, "Usage: farm-cli %s\n", name)
			return 1
		}
		return emit(cli.get(path))(stdout, stderr)
	}
}

// emit prints a successful response or reports the error.
func emit(result json.RawMessage, err error) func(stdout, stderr io.Writer) int {
	return func(stdout, stderr io.Writer) int {
		if err != nil {
			return reportError(stderr, err)
		}
		printJSON(stdout, result)
		return 0
	}
}

func parseIndex(stderr io.Writer, raw, name string) (uint64, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid %s %q\n", name, raw)
		return 0, false
	}
	return value, true
}

func runPackages(cli *client, args []string, stdout, stderr io.Writer) int {
	switch len(args) {
	case 0:
		return emit(cli.get("/v1/packages"))(stdout, stderr)
	case 1:
		id, ok := parseIndex(stderr, args[0], "package id")
		if !ok {
			return 1
		}
		return emit(cli.get(fmt.Sprintf("/v1/packages/%d", id)))(stdout, stderr)
	default:
		fmt.Fprintln(stderr, "Usage: farm-cli packages [id]")
		return 1
	}
}

func runStakes(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: farm-cli stakes <address>")
		return 1
	}
	return emit(cli.get("/v1/accounts/" + url.PathEscape(args[0]) + "/stakes"))(stdout, stderr)
}

func stakePath(stderr io.Writer, args []string, usage, suffix string) (string, bool) {
	if len(args) != 2 {
		fmt.Fprintln(stderr, usage)
		return "", false
	}
	index, ok := parseIndex(stderr, args[1], "stake index")
	if !ok {
		return "", false
	}
	return fmt.Sprintf("/v1/accounts/%s/stakes/%d%s", url.PathEscape(args[0]), index, suffix), true
}

func runStakeInfo(cli *client, args []string, stdout, stderr io.Writer) int {
	path, ok := stakePath(stderr, args, "Usage: farm-cli stake-info <address> <index>", "")
	if !ok {
		return 1
	}
	return emit(cli.get(path))(stdout, stderr)
}

func runReward(cli *client, args []string, stdout, stderr io.Writer) int {
	path, ok := stakePath(stderr, args, "Usage: farm-cli reward <address> <index>", "/reward")
	if !ok {
		return 1
	}
	return emit(cli.get(path))(stdout, stderr)
}

func runPending(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: farm-cli pending <address>")
		return 1
	}
	return emit(cli.get("/v1/accounts/" + url.PathEscape(args[0]) + "/pending"))(stdout, stderr)
}

func runBalance(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "Usage: farm-cli balance <address> <token>")
		return 1
	}
	path := fmt.Sprintf("/v1/accounts/%s/balances/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
	return emit(cli.get(path))(stdout, stderr)
}

func runAllowance(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 3 {
		fmt.Fprintln(stderr, "Usage: farm-cli allowance <address> <token> <spender>")
		return 1
	}
	path := fmt.Sprintf("/v1/accounts/%s/allowances/%s/%s",
		url.PathEscape(args[0]), url.PathEscape(args[1]), url.PathEscape(args[2]))
	return emit(cli.get(path))(stdout, stderr)
}

func runReceipts(cli *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("receipts", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "only receipts from this address")
	operation := fs.String("operation", "", "only receipts for this operation")
	eventType := fs.String("type", "", "only receipts carrying this event type")
	after := fs.Uint64("after", 0, "only receipts after this sequence")
	limit := fs.Int("limit", 0, "maximum number of receipts")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	query := url.Values{}
	if *caller != "" {
		query.Set("caller", *caller)
	}
	if *operation != "" {
		query.Set("operation", *operation)
	}
	if *eventType != "" {
		query.Set("type", *eventType)
	}
	if *after > 0 {
		query.Set("after", strconv.FormatUint(*after, 10))
	}
	if *limit > 0 {
		query.Set("limit", strconv.Itoa(*limit))
	}
	path := "/v1/receipts"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return emit(cli.get(path))(stdout, stderr)
}

func runReceipt(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: farm-cli receipt <id>")
		return 1
	}
	return emit(cli.get("/v1/receipts/" + url.PathEscape(args[0])))(stdout, stderr)
}

func runStake(cli *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stake", flag.ContinueOnError)
	fs.SetOutput(stderr)
	auto := fs.Bool("auto", false, "enable auto-compounding")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "Usage: farm-cli stake [--auto] <packageId> <amount>")
		return 1
	}
	packageID, ok := parseIndex(stderr, fs.Arg(0), "package id")
	if !ok {
		return 1
	}
	body := map[string]interface{}{
		"packageId":    packageID,
		"amount":       strings.TrimSpace(fs.Arg(1)),
		"autoCompound": *auto,
	}
	return emit(cli.post("/v1/stakes", body))(stdout, stderr)
}

func stakeAction(action string) command {
	return func(cli *client, args []string, stdout, stderr io.Writer) int {
		if len(args) != 1 {
			fmt.Fprintf(stderr, "Usage: farm-cli %s <index>\n", action)
			return 1
		}
		index, ok := parseIndex(stderr, args[0], "stake index")
		if !ok {
			return 1
		}
		return emit(cli.post(fmt.Sprintf("/v1/stakes/%d/%s", index, action), struct{}{}))(stdout, stderr)
	}
}

func runWithdrawRewards(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: farm-cli withdraw-rewards <amount>")
		return 1
	}
	body := map[string]string{"amount": strings.TrimSpace(args[0])}
	return emit(cli.post("/v1/rewards/withdraw", body))(stdout, stderr)
}

func runApprove(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 3 {
		fmt.Fprintln(stderr, "Usage: farm-cli approve <token> <spender> <amount>")
		return 1
	}
	body := map[string]string{"token": args[0], "spender": args[1], "amount": args[2]}
	return emit(cli.post("/v1/bank/approve", body))(stdout, stderr)
}

func runTransfer(cli *client, args []string, stdout, stderr io.Writer) int {
	if len(args) != 3 {
		fmt.Fprintln(stderr, "Usage: farm-cli transfer <token> <to> <amount>")
		return 1
	}
	body := map[string]string{"token": args[0], "to": args[1], "amount": args[2]}
	return emit(cli.post("/v1/bank/transfer", body))(stdout, stderr)
}
