package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/identd/internal/agent"
	"github.com/danmuck/identd/internal/logging"
	"github.com/danmuck/identd/internal/observability"
)

func main() {
	configPath := flag.String("config", "", "path to identd TOML config")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg, err := loadAgentConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "identd: %v\n", err)
		os.Exit(1)
	}

	svc, err := agent.Appear(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "identd: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("identd", svc.NodeID())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "identd: %v\n", err)
		os.Exit(1)
	}
}
