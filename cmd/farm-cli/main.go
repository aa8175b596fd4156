package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	rpcURLEnv   = "CAFI_RPC_URL"
	rpcTokenEnv = "CAFI_RPC_TOKEN"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cli := newClient(defaultRPCEndpoint(), strings.TrimSpace(os.Getenv(rpcTokenEnv)))
	args, err := applyGlobalFlags(cli, args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	command, rest := args[0], args[1:]
	switch command {
	case "generate-key":
		return runGenerateKey(rest, stdout, stderr)
	case "address":
		return runAddress(rest, stdout, stderr)
	case "token":
		return runToken(rest, stdout, stderr)
	case "admin":
		return runAdminCommand(cli, rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	}
	if cmd, ok := farmCommands[command]; ok {
		return cmd(cli, rest, stdout, stderr)
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n", command)
	fmt.Fprintln(stderr, usage())
	return 1
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(cli *client, args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--rpc" || arg == "--token":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", arg)
			}
			if arg == "--rpc" {
				cli.endpoint = args[i+1]
			} else {
				cli.token = args[i+1]
			}
			i++
		case strings.HasPrefix(arg, "--rpc="):
			cli.endpoint = strings.TrimPrefix(arg, "--rpc=")
		case strings.HasPrefix(arg, "--token="):
			cli.token = strings.TrimPrefix(arg, "--token=")
		default:
			out = append(out, arg)
		}
	}
	cli.endpoint = strings.TrimSuffix(strings.TrimSpace(cli.endpoint), "/")
	return out, nil
}

func usage() string {
	return `Usage: farm-cli [--rpc URL] [--token JWT] <command> [args]

Keys:
  generate-key [--out wallet.json] [--light]   Create an encrypted keystore
  address --keystore <file>                     Print the keystore address
  token --subject <addr>|--keystore <file> [--scopes farm:write] [--ttl 1h]
                                                Mint an API token (needs CAFI_JWT_SECRET)

Queries:
  params | pool | packages [id]
  stakes <address> | stake <address> <index> | reward <address> <index>
  pending <address> | balance <address> <token> | allowance <address> <token> <spender>
  receipts [--caller addr] [--operation op] [--type event] [--after seq] [--limit n]
  receipt <id>

Calls (require a farm:write token):
  stake <packageId> <amount> [--auto]
  claim <index> | compound <index> | toggle-auto <index> | withdraw <index>
  withdraw-rewards <amount>
  approve <token> <spender> <amount> | transfer <token> <to> <amount>

Administration (require a farm:admin token):
  admin create-package --name n --stake-token LP --lock 2592000 --apy 1500 [--min-stake 1] [--inactive]
  admin update-package <id> [same flags]
  admin set-apy <id> <bps> | admin set-active <id> <true|false>
  admin max-apy <bps> | admin fees <bps> <receiver>
  admin fund <amount> | admin pause | admin unpause | admin transfer-ownership <address>

Environment: CAFI_RPC_URL, CAFI_RPC_TOKEN, CAFI_JWT_SECRET, CAFI_KEYSTORE_PASS`
}
