package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cafichain/cmd/internal/passphrase"
	"cafichain/crypto"
	"cafichain/rpc"
)

const (
	keystorePassEnv = "CAFI_KEYSTORE_PASS"
	jwtSecretEnv    = "CAFI_JWT_SECRET"
)

// newPassphraseSource is swapped in tests.
var newPassphraseSource = func(confirm bool) *passphrase.Source {
	src := passphrase.NewSource(keystorePassEnv)
	if confirm {
		src = src.WithConfirmation()
	}
	return src
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("out", "wallet.json", "keystore file to create")
	light := fs.Bool("light", false, "use light scrypt parameters (development only)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists; refusing to overwrite\n", *out)
		return 1
	}

	pass, err := newPassphraseSource(true).Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: generate key: %v\n", err)
		return 1
	}
	strength := crypto.StandardKeystore
	if *light {
		strength = crypto.LightKeystore
	}
	if err := crypto.SaveToKeystore(*out, key, pass, strength); err != nil {
		fmt.Fprintf(stderr, "Error: save keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Generated new key and saved to %s\n", *out)
	fmt.Fprintf(stdout, "Your address is: %s\n", key.PubKey().Address().String())
	return 0
}

func loadKeystoreAddress(path string) (crypto.Address, error) {
	pass, err := newPassphraseSource(false).Get()
	if err != nil {
		return crypto.Address{}, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return crypto.Address{}, err
	}
	return key.PubKey().Address(), nil
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keystorePath := fs.String("keystore", "wallet.json", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := loadKeystoreAddress(*keystorePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, addr.String())
	return 0
}

// runToken mints a bearer token signed with the node's shared secret. The
// subject names the caller; holding the secret is what authorises it.
func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "", "caller address")
	keystorePath := fs.String("keystore", "", "derive the subject from this keystore")
	scopes := fs.String("scopes", rpc.ScopeWrite, "comma-separated scopes")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	issuer := fs.String("issuer", "", "issuer claim expected by the node")
	audience := fs.String("audience", "", "audience claim expected by the node")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	secret := strings.TrimSpace(os.Getenv(jwtSecretEnv))
	if secret == "" {
		fmt.Fprintf(stderr, "Error: %s must be set\n", jwtSecretEnv)
		return 1
	}
	addr, err := resolveSubject(*subject, *keystorePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var scopeList []string
	for _, scope := range strings.Split(*scopes, ",") {
		if trimmed := strings.TrimSpace(scope); trimmed != "" {
			scopeList = append(scopeList, trimmed)
		}
	}
	token, err := rpc.IssueToken(secret, *issuer, *audience, addr, scopeList, *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}

func resolveSubject(subject, keystorePath string) (crypto.Address, error) {
	subject = strings.TrimSpace(subject)
	keystorePath = strings.TrimSpace(keystorePath)
	switch {
	case subject != "" && keystorePath != "":
		return crypto.Address{}, errors.New("use either --subject or --keystore, not both")
	case subject != "":
		return crypto.DecodeAddress(subject)
	case keystorePath != "":
		return loadKeystoreAddress(keystorePath)
	default:
		return crypto.Address{}, errors.New("--subject or --keystore is required")
	}
}
