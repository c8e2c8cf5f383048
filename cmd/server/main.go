package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/worldgrid/internal/config"
	"github.com/zeusync/worldgrid/internal/core/grid"
	"github.com/zeusync/worldgrid/internal/core/observability/log"
	"github.com/zeusync/worldgrid/internal/core/sim"
	"github.com/zeusync/worldgrid/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			fmt.Println("Error loading config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := log.New(log.ParseLevel(cfg.Log.Level))

	blockMap, err := grid.New(cfg.Grid.Width, cfg.Grid.Height, cfg.Grid.Span, grid.WithLogger(logger))
	if err != nil {
		logger.Fatal("grid construction failed", log.Error(err))
	}

	driver := sim.New(cfg.Sim, blockMap, logger)
	driver.Populate()

	debugServer := server.New(cfg.Server, blockMap, logger)
	if err := debugServer.Start(); err != nil {
		logger.Fatal("debug server start failed", log.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	runDone := make(chan error, 1)
	go func() {
		runDone <- driver.Run(ctx)
	}()

	<-stopCh
	cancel()
	if err := <-runDone; err != nil {
		logger.Error("simulation error", log.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := debugServer.Stop(shutdownCtx); err != nil {
		logger.Error("debug server shutdown failed", log.Error(err))
	}
}
