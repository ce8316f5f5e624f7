package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"xdao.co/precore/ids"
	"xdao.co/precore/message"
)

func (a *app) cmdNode(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.errOut, "usage: precore node <sign|verify> ...")
		return 2
	}
	switch args[0] {
	case "sign":
		return a.cmdNodeSign(args[1:])
	case "verify":
		return a.cmdNodeVerify(args[1:])
	default:
		fmt.Fprintf(a.errOut, "unknown node subcommand: %s\n", args[0])
		return 2
	}
}

func (a *app) cmdNodeSign(args []string) int {
	fs := flag.NewFlagSet("node sign", flag.ContinueOnError)
	fs.SetOutput(a.errOut)

	var (
		addrHex, domain, host      string
		port                       uint
		timestamp                  int64
		seedHex, signer, role      string
		keyFile, certPath, evdPath string
	)
	fs.StringVar(&addrHex, "address", "", "Staking provider address (0x + 40 hex)")
	fs.StringVar(&domain, "domain", "", "Network domain")
	fs.StringVar(&host, "host", "", "Contact host")
	fs.UintVar(&port, "port", 0, "Contact port")
	fs.Int64Var(&timestamp, "timestamp", 0, "Unix timestamp (default now)")
	fs.StringVar(&seedHex, "seed-hex", "", "Signer seed as 64 hex chars")
	fs.StringVar(&signer, "signer", "", "Signer key name in the key store")
	fs.StringVar(&role, "signer-role", "", "Optional signer role")
	fs.StringVar(&keyFile, "key-file", "", "Path to a seed file")
	fs.StringVar(&certPath, "cert", "", "DER certificate file")
	fs.StringVar(&evdPath, "evidence", "", "Identity evidence file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if addrHex == "" || domain == "" || host == "" || port == 0 {
		fmt.Fprintln(a.errOut, "missing --address, --domain, --host or --port")
		return 2
	}
	if port > 65535 {
		fmt.Fprintf(a.errOut, "invalid --port: %d\n", port)
		return 2
	}
	if timestamp < 0 || timestamp > int64(^uint32(0)) {
		fmt.Fprintf(a.errOut, "invalid --timestamp: %d\n", timestamp)
		return 2
	}
	addr, err := ids.ParseAddress(addrHex)
	if err != nil {
		fmt.Fprintf(a.errOut, "invalid --address: %v\n", err)
		return 2
	}
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}

	ks, err := a.keyStore()
	if err != nil {
		a.log.Error("node_sign", zap.String("result", "keystore_error"), zap.Error(err))
		return 1
	}
	id, err := ks.LoadIdentity(seedHex, signer, role, keyFile)
	if err != nil {
		a.log.Error("node_sign", zap.String("result", "signer_error"), zap.Error(err))
		return 1
	}

	payload := message.NodeMetadataPayload{
		StakingProviderAddress: addr,
		Domain:                 domain,
		TimestampEpoch:         uint32(timestamp),
		VerifyingKey:           id.VerifyingKey(),
		EncryptingKey:          id.PublicKey(),
		Host:                   host,
		Port:                   uint16(port),
	}
	if certPath != "" {
		if payload.CertificateDER, err = os.ReadFile(certPath); err != nil {
			a.log.Error("node_sign", zap.String("result", "read_error"), zap.Error(err))
			return 1
		}
	}
	if evdPath != "" {
		if payload.DecentralizedIdentityEvidence, err = os.ReadFile(evdPath); err != nil {
			a.log.Error("node_sign", zap.String("result", "read_error"), zap.Error(err))
			return 1
		}
	}
	if _, err := payload.Multiaddr(); err != nil {
		fmt.Fprintf(a.errOut, "invalid --host: %v\n", err)
		return 2
	}

	m := message.NewNodeMetadata(id.Signer, payload)
	a.log.Info("node_sign", zap.String("result", "ok"),
		zap.String("address", addr.String()), zap.String("verifying_key", id.VerifyingKey().String()))
	if _, err := a.out.Write(m.Bytes()); err != nil {
		a.log.Error("node_sign", zap.String("result", "write_error"), zap.Error(err))
		return 1
	}
	return 0
}

func (a *app) readNode(path string) (message.NodeMetadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return message.NodeMetadata{}, err
	}
	return message.NodeMetadataFromBytes(b)
}

func (a *app) cmdNodeVerify(args []string) int {
	fs := flag.NewFlagSet("node verify", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.errOut, "usage: precore node verify <file>")
		return 2
	}
	m, err := a.readNode(fs.Arg(0))
	if err != nil {
		a.log.Error("node_verify", zap.String("result", "decode_error"), zap.Error(err))
		return 1
	}
	p := m.Payload()
	if !m.Verify() {
		a.log.Warn("node_verify", zap.String("result", "invalid_signature"), zap.String("address", p.StakingProviderAddress.String()))
		fmt.Fprintln(a.out, "INVALID")
		return 1
	}
	fmt.Fprintf(a.out, "OK %s %s\n", p.StakingProviderAddress, p.VerifyingKey)
	return 0
}

func (a *app) cmdFleet(args []string) int {
	if len(args) == 0 || args[0] != "checksum" {
		fmt.Fprintln(a.errOut, "usage: precore fleet checksum <node.ndmd> [...]")
		return 2
	}
	fs := flag.NewFlagSet("fleet checksum", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	nodes := make([]message.NodeMetadata, 0, fs.NArg())
	for _, path := range fs.Args() {
		m, err := a.readNode(path)
		if err != nil {
			a.log.Error("fleet_checksum", zap.String("result", "decode_error"), zap.String("path", path), zap.Error(err))
			return 1
		}
		if !m.Verify() {
			a.log.Warn("fleet_checksum", zap.String("result", "skip_invalid"), zap.String("path", path))
			continue
		}
		nodes = append(nodes, m)
	}
	sum, err := message.ComputeFleetStateChecksum(nodes)
	if err != nil {
		a.log.Error("fleet_checksum", zap.String("result", "hash_error"), zap.Error(err))
		return 1
	}
	fmt.Fprintln(a.out, sum)
	return 0
}
