package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/renehagen/ha-mcp-file-server/internal/audit"
	"github.com/renehagen/ha-mcp-file-server/internal/config"
	"github.com/renehagen/ha-mcp-file-server/internal/files"
	"github.com/renehagen/ha-mcp-file-server/internal/logger"
	"github.com/renehagen/ha-mcp-file-server/internal/mcp"
	"github.com/renehagen/ha-mcp-file-server/internal/sandbox"
	"github.com/renehagen/ha-mcp-file-server/internal/search"
	"github.com/renehagen/ha-mcp-file-server/internal/supervisor"
)

// Version is set at build time via -ldflags "-X main.Version=v1.0.0"
var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ha-mcp-file-server %s\n", Version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger; file logging only when a data dir is configured
	if cfg.DataDir != "" {
		logDir := filepath.Join(cfg.DataDir, "logs")
		if err := logger.Init(logDir); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		if err := logger.InitSlog(logDir, true); err != nil {
			log.Fatalf("Failed to initialize structured logger: %v", err)
		}
		defer func() { _ = logger.CloseSlog() }()
	} else {
		logger.InitConsole()
	}
	defer func() { _ = logger.Close() }()

	logger.Println("Home Assistant MCP file server", Version)

	guard, err := sandbox.NewGuard(cfg.AllowedDirs)
	if err != nil {
		logger.Fatalf("Invalid allowed directories: %v", err)
	}

	policy := files.Policy{ReadOnly: cfg.ReadOnly, MaxFileSize: cfg.MaxFileSize}
	store := files.NewStore(guard, policy)
	searcher := search.NewSearcher(guard, search.Options{
		MaxFileSize: cfg.MaxFileSize,
		Workers:     cfg.SearchWorkers,
	})

	var supervisorClient *supervisor.Client
	if cfg.HasSupervisor() {
		supervisorClient, err = supervisor.NewClient(cfg.SupervisorURL, cfg.SupervisorToken)
		if err != nil {
			logger.Fatalf("Failed to create supervisor client: %v", err)
		}
	} else {
		logger.Println("No supervisor token configured, supervisor tools disabled")
	}

	var auditStore *audit.Store
	var pruner *audit.Pruner
	if cfg.AuditEnabled() {
		auditStore, err = audit.NewStore(cfg.DataDir)
		if err != nil {
			logger.Fatalf("Failed to open audit store: %v", err)
		}
		pruner, err = audit.NewPruner(auditStore, "", 0)
		if err != nil {
			logger.Fatalf("Failed to create audit pruner: %v", err)
		}
		pruner.Start()
	} else {
		logger.Println("No data directory configured, audit trail disabled")
	}

	server := mcp.NewServer(cfg, mcp.Options{
		Version:    Version,
		Store:      store,
		Searcher:   searcher,
		Supervisor: supervisorClient,
		Audit:      auditStore,
	})

	// Setup graceful shutdown
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve()
	}()

	select {
	case err := <-serverErr:
		logger.Fatalf("Server error: %v", err)
	case sig := <-shutdownChan:
		logger.Printf("Received signal %v, shutting down...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error: %v", err)
		}

		if pruner != nil {
			pruner.Stop()
		}
		if auditStore != nil {
			_ = auditStore.Close()
		}

		logger.Println("Shutdown complete")
		_ = logger.Close()
		cancel()
	}
}
