package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xdao.co/precore/keys"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	out     io.Writer
	errOut  io.Writer
	log     *zap.Logger
	keysDir string
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("precore", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() { printUsage(errOut) }
	var verbose bool
	var keysDir string
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	fs.StringVar(&keysDir, "keys-dir", "", "Key store directory (default $"+keys.EnvKeysDir+" or ~/.xdao/precore/keys)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	args = fs.Args()
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	a := &app{out: out, errOut: errOut, log: newLogger(errOut, verbose), keysDir: keysDir}
	defer func() { _ = a.log.Sync() }()
	a.log.Debug("command", zap.String("name", args[0]), zap.Strings("args", args[1:]))

	switch args[0] {
	case "cid":
		return a.cmdCID(args[1:])
	case "fleet":
		return a.cmdFleet(args[1:])
	case "inspect":
		return a.cmdInspect(args[1:])
	case "key":
		return a.cmdKey(args[1:])
	case "node":
		return a.cmdNode(args[1:])
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "precore: protocol object tooling for a proxy re-encryption network")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  precore [--verbose] [--keys-dir <dir>] <command> ...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  precore cid <file>")
	fmt.Fprintln(w, "  precore inspect [--responder <ed25519:b64>] <file>")
	fmt.Fprintln(w, "  precore fleet checksum <node.ndmd> [...]")
	fmt.Fprintln(w, "  precore key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  precore key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  precore key list")
	fmt.Fprintln(w, "  precore key export --name <name> [--role <role>]")
	fmt.Fprintln(w, "  precore node sign --address <0x...> --domain <d> --host <h> --port <p> (--seed-hex <64hex> | --signer <name> [--signer-role <role>] | --key-file <path>) [--timestamp <unix>] [--cert <file>] [--evidence <file>]")
	fmt.Fprintln(w, "  precore node verify <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - keys are stored under ~/.xdao/precore/keys/<name> (0600 seed files)")
	fmt.Fprintln(w, "  - node sign writes envelope bytes to stdout (no trailing newline)")
	fmt.Fprintln(w, "  - inspect prints JSON; unknown brands are reported, not rejected")
	fmt.Fprintln(w, "  - logs are JSON lines on stderr")
}

func (a *app) keyStore() (*keys.KeyStore, error) {
	return keys.CreateKeyStore(a.keysDir)
}
