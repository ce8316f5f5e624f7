package main

import (
	"flag"
	"fmt"

	"go.uber.org/zap"

	"xdao.co/precore/keys"
)

func (a *app) cmdKey(args []string) int {
	if len(args) == 0 {
		a.printKeyUsage()
		return 2
	}
	switch args[0] {
	case "init":
		return a.cmdKeyInit(args[1:])
	case "derive":
		return a.cmdKeyDerive(args[1:])
	case "list":
		return a.cmdKeyList(args[1:])
	case "export":
		return a.cmdKeyExport(args[1:])
	default:
		fmt.Fprintf(a.errOut, "unknown key subcommand: %s\n\n", args[0])
		a.printKeyUsage()
		return 2
	}
}

func (a *app) printKeyUsage() {
	fmt.Fprintln(a.errOut, "Usage:")
	fmt.Fprintln(a.errOut, "  precore key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(a.errOut, "  precore key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(a.errOut, "  precore key list")
	fmt.Fprintln(a.errOut, "  precore key export --name <name> [--role <role>]")
}

func (a *app) printIdentity(label string, pub keys.PublicIdentity) {
	fmt.Fprintf(a.out, "%s verifying key: %s\n", label, pub.VerifyingKey)
	fmt.Fprintf(a.out, "%s encrypting key: %s\n", label, pub.EncryptingKey)
}

func (a *app) cmdKeyInit(args []string) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	var name, seedHex string
	var force bool
	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional 32-byte seed as 64 hex chars")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(a.errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(a.errOut, "invalid --name: %v\n", err)
		return 2
	}

	var seed []byte
	var err error
	if seedHex != "" {
		if seed, err = keys.ParseSeedHex(seedHex); err != nil {
			fmt.Fprintf(a.errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else if seed, err = keys.NewSeed(nil); err != nil {
		a.log.Error("key_init", zap.String("result", "rand_error"), zap.Error(err))
		return 1
	}

	ks, err := a.keyStore()
	if err != nil {
		a.log.Error("key_init", zap.String("result", "keystore_error"), zap.Error(err))
		return 1
	}
	pub, path, err := ks.InitializeRootKey(name, seed, force)
	if err != nil {
		a.log.Error("key_init", zap.String("result", "write_error"), zap.String("name", name), zap.Error(err))
		return 1
	}
	a.log.Info("key_init", zap.String("result", "ok"), zap.String("name", name), zap.String("path", path))
	a.printIdentity("root", pub)
	fmt.Fprintf(a.out, "stored at: %s\n", path)
	return 0
}

func (a *app) cmdKeyDerive(args []string) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	var from, role string
	var force bool
	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role identifier (e.g. ursula, publisher)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" || role == "" {
		fmt.Fprintln(a.errOut, "usage: precore key derive --from <name> --role <role> [--force]")
		return 2
	}
	if err := keys.CheckKeyName(from); err != nil {
		fmt.Fprintf(a.errOut, "invalid --from: %v\n", err)
		return 2
	}
	if err := keys.CheckRole(role); err != nil {
		fmt.Fprintf(a.errOut, "invalid --role: %v\n", err)
		return 2
	}
	ks, err := a.keyStore()
	if err != nil {
		a.log.Error("key_derive", zap.String("result", "keystore_error"), zap.Error(err))
		return 1
	}
	pub, path, err := ks.DeriveKeyFromRole(from, role, force)
	if err != nil {
		a.log.Error("key_derive", zap.String("result", "derive_error"), zap.String("from", from), zap.String("role", role), zap.Error(err))
		return 1
	}
	a.log.Info("key_derive", zap.String("result", "ok"), zap.String("from", from), zap.String("role", role))
	a.printIdentity(role, pub)
	fmt.Fprintf(a.out, "stored at: %s\n", path)
	return 0
}

func (a *app) cmdKeyExport(args []string) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	var name, role string
	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&role, "role", "", "Optional role (exports the derived role key)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(a.errOut, "missing --name")
		return 2
	}
	ks, err := a.keyStore()
	if err != nil {
		a.log.Error("key_export", zap.String("result", "keystore_error"), zap.Error(err))
		return 1
	}
	pub, err := ks.ExportKey(name, role)
	if err != nil {
		a.log.Error("key_export", zap.String("result", "load_error"), zap.String("name", name), zap.Error(err))
		return 1
	}
	fmt.Fprintln(a.out, pub.VerifyingKey)
	fmt.Fprintln(a.out, pub.EncryptingKey)
	return 0
}

func (a *app) cmdKeyList(args []string) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := a.keyStore()
	if err != nil {
		a.log.Error("key_list", zap.String("result", "keystore_error"), zap.Error(err))
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		a.log.Error("key_list", zap.String("result", "read_error"), zap.Error(err))
		return 1
	}
	for _, e := range entries {
		fmt.Fprintln(a.out, e.Name)
		for _, r := range e.Roles {
			fmt.Fprintf(a.out, "  %s\n", r)
		}
	}
	return 0
}
