package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gate4ai/a2a/schema"
	"github.com/gate4ai/a2a/server"
	"github.com/gate4ai/a2a/server/push"
	"github.com/gate4ai/a2a/server/store"
	"github.com/gate4ai/a2a/server/tasks"
	"github.com/gate4ai/a2a/server/transport"
	"github.com/gate4ai/a2a/shared/config"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	listenAddr := flag.String("listen", "", "Override the listen address")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.Server.Address = *listenAddr
	}

	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel.SetLevel(zapcore.InfoLevel)
	}
	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskStore, closeStore, err := buildTaskStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize task store", zap.Error(err))
	}
	defer closeStore()

	bus := tasks.NewBus(logger)
	manager := tasks.NewManager(taskStore, bus, logger)
	pushConfigs := store.NewMemoryPushConfigStore()

	var dispatcher *push.Dispatcher
	if cfg.Push.Enabled {
		var pushOpts []push.Option
		if cfg.Push.RPS > 0 {
			pushOpts = append(pushOpts, push.WithRateLimit(cfg.Push.RPS, cfg.Push.Burst))
		}
		dispatcher = push.NewDispatcher(pushConfigs, logger, pushOpts...)
		dispatcher.Start(bus)
		defer dispatcher.Stop()
	}

	agent := demoAgent(cfg)
	serverOpts := []server.ServerOption{server.WithAgent(agent)}
	if cfg.Push.Enabled {
		serverOpts = append(serverOpts, server.WithPushConfigStore(pushConfigs))
	}
	if cfg.SigningSecret != "" {
		serverOpts = append(serverOpts, server.WithSigningSecret([]byte(cfg.SigningSecret)))
	}
	a2a := server.NewA2AServer(manager, scenarioRunner{}, logger, serverOpts...)

	var transportOpts []transport.TransportOption
	if cfg.Throttle.Enabled && cfg.Throttle.RPS > 0 {
		transportOpts = append(transportOpts, transport.WithThrottler(
			transport.NewThrottler(cfg.Throttle.RPS, cfg.Throttle.Burst)))
	}
	mux := http.NewServeMux()
	transport.New(a2a, logger, transportOpts...).RegisterHandlers(mux)

	httpServer, listenerErrChan, err := transport.StartHTTPServer(ctx, logger, cfg, mux)
	if err != nil {
		logger.Fatal("Failed to start HTTP server", zap.Error(err))
	}

	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, logger, func(updated *config.Config) {
				if err := logLevel.UnmarshalText([]byte(updated.LogLevel)); err != nil {
					logger.Warn("Ignoring invalid log level on reload",
						zap.String("logLevel", updated.LogLevel))
				}
				a2a.SetSigningSecret([]byte(updated.SigningSecret))
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("A2A server started",
		zap.String("address", cfg.Server.Address),
		zap.String("agent", agent.Name),
		zap.String("storage", cfg.Storage.Backend))

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signalCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-listenerErrChan:
		if err != nil {
			logger.Error("Server listener error", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	transport.ShutdownHTTPServer(shutdownCtx, logger, httpServer)
	manager.CancelRuns()
	cancel()
}

// buildTaskStore selects the storage driver from config. The returned close
// function releases backend connections.
func buildTaskStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.TaskStore, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return store.NewMemoryTaskStore(), func() {}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Storage.Redis.Addr, err)
		}
		var opts []store.CacheOption
		if cfg.Storage.Redis.KeyPrefix != "" {
			opts = append(opts, store.WithKeyPrefix(cfg.Storage.Redis.KeyPrefix))
		}
		if cfg.Storage.Redis.TTL.Std() > 0 {
			opts = append(opts, store.WithTTL(cfg.Storage.Redis.TTL.Std()))
		}
		taskStore, err := store.NewRedisTaskStore(client, opts...)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return taskStore, func() { client.Close() }, nil

	case config.BackendPostgres:
		taskStore, err := store.NewPostgresTaskStore(ctx, cfg.Storage.Postgres.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return taskStore, func() { taskStore.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// demoAgent describes the scenario runner on the agent card.
func demoAgent(cfg *config.Config) *server.Agent {
	return &server.Agent{
		Name:        cfg.Server.Name,
		Description: "Demo agent running scripted A2A scenarios",
		Version:     cfg.Server.Version,
		URL:         "http://" + trimLeadingColon(cfg.Server.Address) + transport.A2APath,
		Tools: []server.Tool{
			{
				ID:          "scenarios",
				Name:        "Scenario runner",
				Description: "Runs A2A test scenarios based on input text ('error_test', 'input_test', 'cancel_test', 'stream_test'); echoes everything else",
				Tags:        []string{"demo", "echo"},
				InputModes:  []string{"text/plain"},
				OutputModes: []string{"text/plain", "application/json"},
			},
		},
		Provider: &schema.AgentProvider{Organization: "gate4.ai"},
	}
}

func trimLeadingColon(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
