package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/Mindburn-Labs/axm/pkg/compiler"
	"github.com/Mindburn-Labs/axm/pkg/config"
	"github.com/Mindburn-Labs/axm/pkg/shardsign"
)

// runCompileCmd implements `shardctl compile`.
//
// Exit codes:
//
//	0 = compiled successfully
//	1 = compilation failed (single-line FATAL on stderr; with --json, a
//	    failed compile is reported as a JSON error object on stdout)
//	2 = usage error
func runCompileCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("compile", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		capsule    string
		out        string
		gold       bool
		seedHex    string
		profile    string
		jsonOutput bool
	)

	cmd.StringVar(&capsule, "capsule", "", "Path to Capsule directory (or first positional arg)")
	cmd.StringVar(&out, "out", "", "Output path for the Shard directory (or second positional arg)")
	cmd.BoolVar(&gold, "gold", false, "Sign with the fixed gold key and timestamp for a reproducible build")
	cmd.StringVar(&seedHex, "key", "", "Hex-encoded 32-byte Ed25519 seed to sign with (default: gold key)")
	cmd.StringVar(&profile, "profile", "", "Signer profile code (profiles/profile_<code>.yaml)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if capsule == "" && cmd.NArg() >= 1 {
		capsule = cmd.Arg(0)
	}
	if out == "" && cmd.NArg() >= 2 {
		out = cmd.Arg(1)
	}
	if capsule == "" || out == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: shardctl compile <capsule> <out> [--gold] [--key HEX | --profile CODE]")
		return 2
	}

	// The default signing key is always the fixed gold seed (see
	// pkg/shardsign.GoldKey); --profile, --key, and SHARDCTL_SIGNING_SEED
	// override it, in that precedence order. --gold forces the gold key over
	// all of these and pins the timestamp for a byte-reproducible build;
	// otherwise the manifest is stamped with the current time.
	cfg := config.Load()
	if seedHex == "" {
		seedHex = cfg.SigningSeed
	}
	if profile != "" {
		p, err := config.LoadProfile(cfg.ProfilesDir, profile)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
			return 1
		}
		seedHex, err = p.Seed()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
			return 1
		}
	}

	opts := compiler.Options{}
	if seedHex != "" {
		key, err := shardsign.KeyFromSeedHex(seedHex)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
			return 1
		}
		opts.SigningKey = key
	}
	if gold {
		opts.SigningKey = shardsign.GoldKey()
		opts.Timestamp = shardsign.GoldTimestamp
	}

	stats, err := compiler.Compile(capsule, out, opts)
	if err != nil {
		if jsonOutput {
			data, _ := json.MarshalIndent(map[string]any{"status": "error", "error": err.Error()}, "", "  ")
			_, _ = fmt.Fprintln(stdout, string(data))
		} else {
			_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
		}
		return 1
	}

	capsuleHash, err := compiler.SourceHashHex(filepath.Join(capsule, "events.jsonl"))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]any{
			"status":       "ok",
			"shard":        out,
			"capsule_hash": capsuleHash,
			"entities":     stats.Entities,
			"claims":       stats.Claims,
			"spans":        stats.Spans,
		}, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		_, _ = fmt.Fprintf(stdout, "%sPASS:%s Shard generated at %s\n", ColorBold+ColorGreen, ColorReset, out)
		_, _ = fmt.Fprintf(stdout, "  capsule_hash: %s\n", capsuleHash)
		_, _ = fmt.Fprintf(stdout, "  entities:     %d\n", stats.Entities)
		_, _ = fmt.Fprintf(stdout, "  claims:       %d\n", stats.Claims)
		_, _ = fmt.Fprintf(stdout, "  spans:        %d\n", stats.Spans)
	}
	return 0
}
