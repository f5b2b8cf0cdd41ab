package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aylahq/ayla-agent/internal/agents"
	"github.com/aylahq/ayla-agent/internal/api"
	"github.com/aylahq/ayla-agent/internal/buildinfo"
	"github.com/aylahq/ayla-agent/internal/config"
	"github.com/aylahq/ayla-agent/internal/email"
	"github.com/aylahq/ayla-agent/internal/errs"
	"github.com/aylahq/ayla-agent/internal/events"
	"github.com/aylahq/ayla-agent/internal/llm"
	"github.com/aylahq/ayla-agent/internal/memory"
	"github.com/aylahq/ayla-agent/internal/mqtt"
	"github.com/aylahq/ayla-agent/internal/plans"
	"github.com/aylahq/ayla-agent/internal/promise"
	"github.com/aylahq/ayla-agent/internal/responder"
	"github.com/aylahq/ayla-agent/internal/router"
	"github.com/aylahq/ayla-agent/internal/tools"
	"github.com/aylahq/ayla-agent/internal/users"
	"github.com/aylahq/ayla-agent/internal/whatsapp"
)

// runServe handles the "ayla serve" subcommand. It is the primary
// operating mode: loads config, opens the databases, connects the
// memory backend and the gateway, wires the turn pipeline, starts the
// API server, and blocks until a shutdown signal arrives.
//
// The shutdown sequence is:
//  1. SIGINT or SIGTERM cancels the context
//  2. The MQTT publisher announces offline and disconnects
//  3. The HTTP server drains in-flight requests
//  4. Database connections close via defers
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Ayla", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level and format are
	// known. The initial Info-level text logger covers only the startup
	// banner and config errors.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			// Already validated by config.Validate.
			level, _ = config.ParseLogLevel(cfg.LogLevel)
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.LLM.Model,
		"gateway", cfg.Gateway.BaseURL,
	)

	bus := events.New()

	// --- Data directory ---
	// All persistent state (user accounts, plans, personas, the MQTT
	// instance identity) lives under one directory.
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	// --- SQLite stores ---
	// Users, plans, and personas share one database file.
	dbPath := filepath.Join(cfg.DataDir, "ayla.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", dbPath, err)
	}
	defer db.Close()

	userStore, err := users.NewStoreWithDB(db)
	if err != nil {
		return fmt.Errorf("user store: %w", err)
	}
	planStore, err := plans.NewStoreWithDB(db)
	if err != nil {
		return fmt.Errorf("plan store: %w", err)
	}
	agentStore, err := agents.NewStoreWithDB(db)
	if err != nil {
		return fmt.Errorf("agent store: %w", err)
	}
	logger.Info("database opened", "path", dbPath)

	// --- Personas ---
	// Seed the shipped set on first run, then load whatever the store
	// holds. A failed load falls back to the embedded builtins inside
	// the registry.
	if err := agents.Seed(agentStore); err != nil {
		return fmt.Errorf("seed agents: %w", err)
	}
	registry := agents.NewRegistry(agentStore, logger)
	if err := registry.Load(ctx); err != nil {
		return fmt.Errorf("load agents: %w", err)
	}
	logger.Info("agents loaded", "count", len(registry.Keys()))

	// --- Conversation memory ---
	// Redis-backed per-user history. An unreachable backend degrades to
	// empty history per turn rather than failing the pipeline, so the
	// client is created unconditionally.
	if !cfg.Redis.Configured() {
		logger.Warn("redis not configured, conversation memory will degrade")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	mem := memory.NewStore(rdb, cfg.Memory.MaxMessages, cfg.Memory.TTL(), logger, memory.WithBus(bus))

	// --- Completion client ---
	llmOpts := []llm.Option{llm.WithFallbackModel(cfg.LLM.FallbackModel)}
	if cfg.LLM.TimeoutSec > 0 {
		llmOpts = append(llmOpts, llm.WithTimeout(time.Duration(cfg.LLM.TimeoutSec)*time.Second))
	}
	llmClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxCompletionTokens, llmOpts...)
	logger.Info("completion client initialized", "model", cfg.LLM.Model, "base_url", cfg.LLM.BaseURL)

	// --- Tools ---
	lookup := users.NewLookup(userStore, cfg.Onboarding.URLBase, logger)
	toolOpts := []tools.Option{tools.WithBus(bus)}
	if sender := email.NewSender(cfg.SMTP, logger); sender != nil {
		toolOpts = append(toolOpts, tools.WithMailer(sender))
		logger.Info("welcome emails enabled", "host", cfg.SMTP.Host)
	}
	toolReg := tools.NewRegistry(userStore, lookup, planStore, logger, toolOpts...)

	// --- Responder and promise corrector ---
	// The completion client sits behind a circuit breaker so an API
	// outage degrades to the fallback reply immediately instead of
	// burning the timeout on every turn.
	completer := &guardedCompleter{
		llm:     llmClient,
		breaker: errs.NewBreaker("llm", 5, 30*time.Second),
	}
	respond := responder.New(completer, toolReg, logger, bus)

	detector := promise.NewDetector(promiseLists(cfg.Promise))
	corrector := promise.NewCorrector(toolReg, detector, logger, bus)

	rtr := router.New(router.Keywords{
		Fitness:     cfg.Router.FitnessKeywords,
		Nutrition:   cfg.Router.NutritionKeywords,
		OutOfDomain: cfg.Router.OutOfDomainKeywords,
		Sales:       cfg.Router.SalesKeywords,
		Support:     cfg.Router.SupportKeywords,
	}, logger)

	// --- WhatsApp gateway ---
	// Optional. Without it, responses only go back to the HTTP caller.
	// Sends run through a retry policy and a breaker of their own.
	var gateway *whatsapp.Client
	var deliverer api.Deliverer
	var gatewayProbe api.GatewayProbe
	if cfg.Gateway.Configured() {
		gateway = whatsapp.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Instance, logger)
		sender := &guardedSender{
			gateway: gateway,
			breaker: errs.NewBreaker("gateway", 5, 30*time.Second),
			policy:  errs.DefaultPolicy(),
		}
		deliverer = whatsapp.NewPacer(sender, cfg.Segmenter.MaxLength, cfg.Pacer.Delay(), logger, bus)
		gatewayProbe = gateway
		logger.Info("gateway configured", "instance", cfg.Gateway.Instance)
	} else {
		logger.Warn("gateway not configured, outbound WhatsApp delivery disabled")
	}

	// --- Turn pipeline and API server ---
	pipeline := api.NewPipeline(mem, lookup, rtr, registry, respond, corrector, deliverer,
		cfg.Memory.UserTag, cfg.Memory.AgentTag, logger, bus)
	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, pipeline, mem, registry,
		deliverer, gatewayProbe, llmClient, logger)

	// --- Signal handling and graceful shutdown ---
	// NotifyContext wraps the parent context so SIGINT/SIGTERM
	// cancellation flows through the same ctx used by every component.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Inbound websocket events ---
	// Optional alternative to the HTTP webhook: consume gateway events
	// directly and feed them through the same pipeline.
	if gateway != nil && cfg.Gateway.WebsocketEnabled {
		listener := whatsapp.NewListener(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Instance,
			func(hctx context.Context, msg whatsapp.InboundMessage) {
				pipeline.Process(hctx, api.Turn{
					Phone:    msg.Phone,
					UserName: msg.Name,
					Message:  msg.Text,
					Deliver:  true,
				})
			}, logger)
		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("websocket listener stopped", "error", err)
			}
		}()
		logger.Info("websocket listener enabled")
	}

	// --- MQTT operational status ---
	var mqttPub *mqtt.Publisher
	if cfg.MQTT.Enabled {
		instanceID, err := mqtt.LoadOrCreateInstanceID(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("instance identity: %w", err)
		}
		counters := mqtt.NewDailyCounters(nil)
		go counters.Run(ctx, bus)

		mqttPub = mqtt.New(cfg.MQTT, instanceID, counters, cfg.LLM.Model, logger)
		if err := mqttPub.Start(ctx); err != nil {
			logger.Error("mqtt publisher failed to start", "error", err)
			mqttPub = nil
		} else {
			logger.Info("mqtt publishing enabled",
				"broker", cfg.MQTT.Broker,
				"device_name", cfg.MQTT.DeviceName,
				"interval", cfg.MQTT.PublishIntervalSec,
			)
		}
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		// Announce offline before the broker sees a clean disconnect.
		if mqttPub != nil {
			offlineCtx, offlineCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer offlineCancel()
			if err := mqttPub.Stop(offlineCtx); err != nil {
				logger.Error("mqtt shutdown failed", "error", err)
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	// Start the API server. Blocks until shutdown via context
	// cancellation or fatal error.
	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Ayla stopped")
	return nil
}

// promiseLists maps the config override section onto the detector's
// vocabulary lists. Empty fields keep the defaults.
func promiseLists(cfg config.PromiseConfig) promise.Lists {
	lists := promise.Lists{Phrases: cfg.Phrases}
	for _, p := range cfg.ActionPairs {
		lists.Pairs = append(lists.Pairs, promise.Pair{Action: p.Action, Keywords: p.Keywords})
	}
	return lists
}

// guardedCompleter wraps the completion client in a circuit breaker.
// Satisfies responder.Completer.
type guardedCompleter struct {
	llm     *llm.Client
	breaker *errs.Breaker
}

func (g *guardedCompleter) Chat(ctx context.Context, messages []llm.Message, tools []map[string]any) (*llm.ChatResponse, error) {
	return errs.ExecuteWithResult(g.breaker, func() (*llm.ChatResponse, error) {
		resp, err := g.llm.Chat(ctx, messages, tools)
		return resp, errs.E(errs.Transient, "llm.chat", err)
	})
}

func (g *guardedCompleter) Model() string {
	return g.llm.Model()
}

// guardedSender wraps gateway sends in a short retry policy and a
// circuit breaker. Satisfies whatsapp.Sender.
type guardedSender struct {
	gateway *whatsapp.Client
	breaker *errs.Breaker
	policy  *errs.Policy
}

func (g *guardedSender) SendText(ctx context.Context, number, text string) error {
	return g.breaker.Execute(func() error {
		return errs.Do(ctx, g.policy, func() error {
			return errs.E(errs.Transient, "gateway.send", g.gateway.SendText(ctx, number, text))
		})
	})
}
