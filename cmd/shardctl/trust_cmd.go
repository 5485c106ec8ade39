package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Mindburn-Labs/axm/pkg/governance"
)

// runTrustCmd implements `shardctl trust <add-key|list-keys>`, a thin
// maintenance layer over governance/trust_store.json.
func runTrustCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "Usage: shardctl trust <add-key|list-keys> [--root DIR] [--json]")
		return 2
	}

	var (
		repoRoot   string
		jsonOutput bool
		rest       []string
	)
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			jsonOutput = true
		case "--root":
			if i+1 >= len(args) {
				_, _ = fmt.Fprintln(stderr, "Error: --root requires a value")
				return 2
			}
			i++
			repoRoot = args[i]
		default:
			rest = append(rest, args[i])
		}
	}
	if repoRoot == "" {
		var err error
		repoRoot, err = os.Getwd()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
			return 2
		}
	}

	if len(rest) == 0 {
		_, _ = fmt.Fprintln(stderr, "Usage: shardctl trust <add-key|list-keys> [--root DIR] [--json]")
		return 2
	}

	switch rest[0] {
	case "add-key":
		if len(rest) < 2 {
			_, _ = fmt.Fprintln(stderr, "Usage: shardctl trust add-key <hex-pubkey> [--root DIR] [--json]")
			return 2
		}
		return trustAddKey(stdout, stderr, repoRoot, rest[1], jsonOutput)
	case "list-keys":
		return trustListKeys(stdout, stderr, repoRoot, jsonOutput)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown trust subcommand: %s\n", rest[0])
		return 2
	}
}

func trustAddKey(stdout, stderr io.Writer, repoRoot, keyHex string, jsonOutput bool) int {
	if _, err := hex.DecodeString(keyHex); err != nil {
		_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}

	ts, err := governance.Load(repoRoot)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}
	if !ts.Trusts(keyHex) {
		ts.TrustedPublishers = append(ts.TrustedPublishers, keyHex)
	}

	path := filepath.Join(repoRoot, governance.TrustStorePath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}
	data, err := json.MarshalIndent(ts, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(map[string]any{"action": "add-key", "pubkey": keyHex, "status": "added"}, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(out))
	} else {
		_, _ = fmt.Fprintf(stdout, "%sPASS:%s trusted publisher key added: %s\n", ColorBold+ColorGreen, ColorReset, keyHex)
	}
	return 0
}

func trustListKeys(stdout, stderr io.Writer, repoRoot string, jsonOutput bool) int {
	ts, err := governance.Load(repoRoot)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}

	if jsonOutput {
		out, _ := json.MarshalIndent(map[string]any{"action": "list-keys", "keys": ts.TrustedPublishers, "count": len(ts.TrustedPublishers)}, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(out))
		return 0
	}

	_, _ = fmt.Fprintln(stdout, "Trusted Publisher Keys:")
	if len(ts.TrustedPublishers) == 0 {
		_, _ = fmt.Fprintln(stdout, "  (none configured)")
		return 0
	}
	for _, k := range ts.TrustedPublishers {
		_, _ = fmt.Fprintf(stdout, "  %s\n", k)
	}
	return 0
}
