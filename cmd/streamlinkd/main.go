package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/kestrelworks/streamlink/internal/client"
	"github.com/kestrelworks/streamlink/internal/config"
	"github.com/kestrelworks/streamlink/internal/decode"
	"github.com/kestrelworks/streamlink/internal/observability"
	"github.com/kestrelworks/streamlink/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "streamlinkd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "streamlink.toml", "path to daemon config")
	flag.Parse()

	observability.InitLogger("streamlinkd")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	tr, err := config.BuildTransport(cfg)
	if err != nil {
		return err
	}
	clientCfg, err := config.ClientConfig(cfg)
	if err != nil {
		return err
	}

	cl, err := client.New(tr, clientCfg, log.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cl.Connect(); err != nil {
		return err
	}
	defer cl.Disconnect()

	cl.StartStreaming(func(sample decode.Sample) {
		log.Debug().Int("fields", len(sample)).Msg("telemetry sample")
	})

	srv := server.New("streamlinkd", cfg.Admin.Addr, cfg.Admin.CorsOrigins, cl)
	return srv.Run(ctx)
}
