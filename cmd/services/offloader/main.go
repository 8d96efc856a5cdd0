package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/BenniProbst/redcomponent-db-offloading/internal/config"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/events"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/handlers"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/logging"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/middleware"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/offload"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/registry"
	"github.com/BenniProbst/redcomponent-db-offloading/internal/transfer"
)

// nodeStaleAfter is how long a registry snapshot stays trusted before
// its health is downgraded to unknown
const nodeStaleAfter = 60 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("Starting offloader service",
		"node_id", cfg.Server.NodeID,
		"region", cfg.Server.Region,
		"http_port", cfg.Server.HTTPPort)

	// Node registry: etcd-backed when endpoints are configured, otherwise
	// an empty static registry populated via the API or tests
	var nodeRegistry registry.NodeRegistry
	var etcdClient *clientv3.Client
	if len(cfg.Etcd.Endpoints) > 0 {
		etcdClient, err = clientv3.New(clientv3.Config{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout,
			Username:    cfg.Etcd.Username,
			Password:    cfg.Etcd.Password,
		})
		if err != nil {
			logger.Fatal("Failed to connect to etcd", "error", err)
		}
		defer etcdClient.Close()
		nodeRegistry = registry.NewEtcdRegistry(etcdClient, cfg.Etcd.NodePrefix, nodeStaleAfter, logger)
		logger.Info("Using etcd node registry", "endpoints", fmt.Sprintf("%v", cfg.Etcd.Endpoints))
	} else {
		nodeRegistry = registry.NewStaticRegistry(nil)
		logger.Warn("No etcd endpoints configured, using static node registry")
	}

	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal("Failed to create event publisher", "error", err)
	}
	defer publisher.Close()

	pool := transfer.NewConnectionPool(cfg.Transfer.MaxMessageSize, cfg.Transfer.HealthCheckInterval, logger)
	defer pool.Close()

	source := transfer.NewDirSource(cfg.Server.DataDir)
	collaborator := transfer.NewGRPCTransfer(pool, source, logger)

	controller := offload.NewController(offload.Options{
		NodeID:      cfg.Server.NodeID,
		LocalRegion: cfg.Server.Region,
		Config:      cfg.Offload,
		Registry:    nodeRegistry,
		Transfer:    collaborator,
		Publisher:   publisher,
		Logger:      logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               "redcomponent-offloader",
		DisableStartupMessage: true,
	})
	app.Use(logging.FiberMiddleware(logger))
	app.Use(middleware.APIKeyAuth(cfg.Auth))

	handlers.NewHandler(controller, logger).RegisterRoutes(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
	go func() {
		if err := app.Listen(addr); err != nil {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()
	logger.Info("HTTP server listening", "addr", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig.String())

	if controller.IsActive() {
		logger.Warn("Cancelling active offload operation for shutdown")
		controller.Cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	logger.Info("Offloader service stopped")
}
