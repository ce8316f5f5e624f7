package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"xdao.co/precore/cidutil"
	"xdao.co/precore/envelope"
	"xdao.co/precore/keys"
	"xdao.co/precore/message"
)

func (a *app) cmdCID(args []string) int {
	fs := flag.NewFlagSet("cid", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.errOut, "usage: precore cid <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		a.log.Error("cid", zap.String("result", "read_error"), zap.Error(err))
		return 1
	}
	c, err := cidutil.CIDv1RawSHA256(b)
	if err != nil {
		a.log.Error("cid", zap.String("result", "hash_error"), zap.Error(err))
		return 1
	}
	fmt.Fprintln(a.out, c)
	return 0
}

type inspectReport struct {
	Brand   string         `json:"brand"`
	Version string         `json:"version"`
	Kind    string         `json:"kind"`
	CID     string         `json:"cid"`
	Summary map[string]any `json:"summary,omitempty"`
}

func (a *app) cmdInspect(args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	var responder string
	fs.StringVar(&responder, "responder", "", "Verifying key of the node that signed a MetadataResponse")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(a.errOut, "usage: precore inspect [--responder <ed25519:b64>] <file>")
		return 2
	}
	var responderVK *keys.VerifyingKey
	if responder != "" {
		vk, err := keys.ParseVerifyingKey(responder)
		if err != nil {
			fmt.Fprintf(a.errOut, "invalid --responder: %v\n", err)
			return 2
		}
		responderVK = &vk
	}

	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		a.log.Error("inspect", zap.String("result", "read_error"), zap.Error(err))
		return 1
	}
	d, err := message.Decode(b)
	if err != nil {
		a.log.Error("inspect", zap.String("result", "decode_error"),
			zap.String("kind", d.Kind.String()), zap.Error(err))
		if envelope.IsKind(err, envelope.KindHeader) {
			fmt.Fprintln(a.errOut, "not an envelope: file too short")
		}
		return 1
	}
	c, err := cidutil.CIDv1RawSHA256(b)
	if err != nil {
		a.log.Error("inspect", zap.String("result", "hash_error"), zap.Error(err))
		return 1
	}
	report := inspectReport{
		Brand:   d.Header.Brand.String(),
		Version: d.Header.Version.String(),
		Kind:    d.Kind.String(),
		CID:     c.String(),
		Summary: summarize(d.Object, responderVK),
	}
	a.log.Debug("inspect", zap.String("result", "ok"), zap.String("kind", report.Kind), zap.String("cid", report.CID))

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		a.log.Error("inspect", zap.String("result", "write_error"), zap.Error(err))
		return 1
	}
	return 0
}

func nodeSummary(m message.NodeMetadata) map[string]any {
	p := m.Payload()
	s := map[string]any{
		"staking_provider_address": p.StakingProviderAddress.String(),
		"domain":                   p.Domain,
		"timestamp_epoch":          p.TimestampEpoch,
		"verifying_key":            p.VerifyingKey.String(),
		"encrypting_key":           p.EncryptingKey.String(),
		"host":                     p.Host,
		"port":                     p.Port,
		"certificate_bytes":        len(p.CertificateDER),
		"has_identity_evidence":    p.DecentralizedIdentityEvidence != nil,
		"signature_valid":          m.Verify(),
	}
	if addr, err := p.Multiaddr(); err == nil {
		s["multiaddr"] = addr.String()
	}
	return s
}

func nodeSummaries(nodes []message.NodeMetadata) []map[string]any {
	out := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeSummary(n))
	}
	return out
}

func summarize(obj envelope.Object, responder *keys.VerifyingKey) map[string]any {
	switch o := obj.(type) {
	case *message.NodeMetadata:
		return nodeSummary(*o)
	case *message.MetadataRequest:
		return map[string]any{
			"fleet_state_checksum": o.FleetStateChecksum.String(),
			"announce_nodes":       nodeSummaries(o.AnnounceNodes),
		}
	case *message.MetadataResponse:
		if responder == nil {
			return map[string]any{"verified": false, "note": "pass --responder to verify"}
		}
		resp, ok := o.Verify(*responder)
		if !ok {
			return map[string]any{"verified": false}
		}
		return map[string]any{
			"verified":        true,
			"timestamp_epoch": resp.TimestampEpoch,
			"announce_nodes":  nodeSummaries(resp.AnnounceNodes),
		}
	case *message.RetrievalKit:
		addrs := make([]string, 0, o.Len())
		for _, addr := range o.QueriedAddresses() {
			addrs = append(addrs, addr.String())
		}
		return map[string]any{
			"capsule":           hex.EncodeToString(o.Capsule[:]),
			"queried_addresses": addrs,
		}
	case *message.MessageKit:
		return map[string]any{
			"capsule":         hex.EncodeToString(o.Capsule[:]),
			"ciphertext_size": len(o.Ciphertext),
		}
	case *message.TreasureMap:
		dests := make([]string, 0)
		for _, d := range o.Destinations() {
			dests = append(dests, d.Address.String())
		}
		return map[string]any{
			"threshold":               o.Threshold,
			"hrac":                    o.HRAC.String(),
			"destinations":            dests,
			"policy_encrypting_key":   o.PolicyEncryptingKey.String(),
			"publisher_verifying_key": o.PublisherVerifyingKey.String(),
		}
	case *message.EncryptedTreasureMap:
		capsule := o.Capsule()
		return map[string]any{"capsule": hex.EncodeToString(capsule[:])}
	}
	return nil
}
