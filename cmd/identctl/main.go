package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/identd/internal/config"
	"github.com/danmuck/identd/internal/identity"
	"github.com/danmuck/identd/internal/logging"
	"github.com/danmuck/identd/internal/mgmt"
)

func main() {
	configPath := flag.String("config", "", "path to identctl TOML config")
	addr := flag.String("addr", "", "agent management address (overrides config)")
	timeout := flag.Duration("timeout", 0, "resolution timeout (overrides config)")
	asJSON := flag.Bool("json", false, "print the full snapshot as JSON")
	flag.Parse()

	logging.ConfigureRuntime()

	if err := run(*configPath, *addr, *timeout, *asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "identctl: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr string, timeout time.Duration, asJSON bool) error {
	cfg := config.ClientConfig{}.WithDefaults()
	if strings.TrimSpace(configPath) != "" {
		loaded, err := config.LoadClientConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if strings.TrimSpace(addr) != "" {
		cfg.Addr = addr
	}
	if timeout <= 0 {
		d, err := cfg.ResolveTimeout()
		if err != nil {
			return err
		}
		timeout = d
	}

	client, err := mgmt.NewClient(cfg.Addr, mgmt.WithTimeout(timeout))
	if err != nil {
		return err
	}
	provider := identity.New(client.NodeID)
	defer provider.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	id, resolveErr := provider.Resolve(ctx)

	if asJSON {
		snap := provider.Snapshot()
		out := map[string]any{
			"resolved": snap.Resolved,
			"node_id":  snap.NodeID,
			"target":   client.Addr(),
		}
		if snap.Err != nil {
			out["error"] = snap.Err.Error()
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		return resolveErr
	}

	if resolveErr != nil {
		return resolveErr
	}
	fmt.Println(id)
	return nil
}
