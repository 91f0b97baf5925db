package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"panel/internal/bot"
	"panel/internal/bus"
	"panel/internal/catalog"
	"panel/internal/config"
	"panel/internal/flow"
	"panel/internal/ledger"
	"panel/internal/storage"
	"panel/internal/storage/pg"
	"panel/internal/storage/stubs"
	"panel/internal/worker"
)

// App represents the application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	db        storage.Storage
	flowStore flow.Store
	bot       *bot.Bot
	worker    *worker.FulfillmentWorker
	server    *http.Server

	workerCancel context.CancelFunc
	closers      []func() error
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting panel bot")

	if err := app.initStorage(); err != nil {
		return nil, err
	}

	if err := app.initFlowStore(); err != nil {
		return nil, err
	}

	if err := app.initBot(); err != nil {
		return nil, err
	}

	app.initHTTPServer()

	return app, nil
}

// initStorage initializes the database connection
func (a *App) initStorage() error {
	ctx := context.Background()

	var db storage.Storage
	if a.config.UseMockDB {
		a.logger.Info("Using mock database")
		db = stubs.NewMockDB()
	} else {
		a.logger.Info("Connecting to PostgreSQL",
			zap.String("host", a.config.PostgresHost),
			zap.Int("port", a.config.PostgresPort),
			zap.String("database", a.config.PostgresDatabase),
		)
		pgdb, err := pg.NewPostgresDB(ctx, a.config.PostgresDSN())
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		db = pgdb
	}

	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.logger.Info("Database initialized successfully")

	a.db = db
	a.closers = append(a.closers, db.Close)
	return nil
}

// initFlowStore picks the conversation state backend. With Redis,
// in-progress dialogs survive process restarts.
func (a *App) initFlowStore() error {
	if a.config.RedisAddr == "" {
		a.logger.Info("Using in-memory flow state store")
		a.flowStore = flow.NewMemoryStore()
		return nil
	}

	a.logger.Info("Connecting to Redis for flow state", zap.String("addr", a.config.RedisAddr))
	store, err := flow.NewRedisStore(context.Background(), a.config.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	a.flowStore = store
	a.closers = append(a.closers, store.Close)
	return nil
}

// initBot wires the ledger, catalog, tracker, event bus and Telegram bot.
func (a *App) initBot() error {
	var publisher bus.Publisher = bus.Noop{}
	if a.config.NatsURL != "" {
		a.logger.Info("Connecting to NATS", zap.String("url", a.config.NatsURL))
		nc, err := bus.Connect(a.config.NatsURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher = nc
		a.closers = append(a.closers, func() error { nc.Close(); return nil })
		a.worker = worker.NewFulfillmentWorker(nc, a.logger)
	} else {
		a.logger.Info("NATS_URL not set, order events disabled")
	}

	ldg := ledger.New(a.db, publisher, a.config.AdminUserIDs, a.logger)
	cat := catalog.New(a.db, a.config.AdminUserIDs, a.logger)
	tracker := flow.NewTracker(a.flowStore, a.config.FlowTTL)

	telegramBot, err := bot.NewBot(a.config.TelegramToken, ldg, cat, tracker, a.db, a.config.AdminUserIDs, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created successfully", zap.Int64s("admin_ids", a.config.AdminUserIDs))

	a.bot = telegramBot
	return nil
}

// initHTTPServer initializes the HTTP server for health checks and webhook
func (a *App) initHTTPServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // Default port
	}

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	// Root endpoint
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		mode := "polling"
		if a.config.WebhookMode {
			mode = "webhook"
		}
		fmt.Fprintf(w, "Panel bot is running (mode: %s)", mode)
	})

	// Webhook endpoint (only used in webhook mode)
	mux.HandleFunc("/telegram-webhook", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			a.logger.Error("Error decoding webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Dispatch enqueues and returns quickly; each user's updates
		// are handled in arrival order so flow steps cannot reorder.
		a.bot.Dispatch(update)

		w.WriteHeader(http.StatusOK)
	})

	a.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Start HTTP server in background
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start the fulfillment worker when NATS is configured
	if a.worker != nil {
		workerCtx, cancel := context.WithCancel(context.Background())
		a.workerCancel = cancel
		go func() {
			if err := a.worker.Run(workerCtx); err != nil {
				a.logger.Error("Fulfillment worker error", zap.Error(err))
			}
		}()
	}

	// Start bot in appropriate mode
	if a.config.WebhookMode {
		// Webhook mode: configure webhook and wait for HTTP requests
		a.logger.Info("Starting bot in webhook mode", zap.String("webhook_url", a.config.WebhookURL))
		if err := a.bot.StartWebhook(a.config.WebhookURL); err != nil {
			return fmt.Errorf("failed to setup webhook: %w", err)
		}
	} else {
		// Polling mode: actively poll Telegram servers
		go func() {
			a.logger.Info("Starting bot in polling mode")
			if err := a.bot.Start(); err != nil {
				a.logger.Fatal("Failed to start bot", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	<-sigChan

	a.logger.Info("Shutting down")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	if a.workerCancel != nil {
		a.workerCancel()
	}

	// Shutdown HTTP server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Close collaborators in reverse order of creation
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("Error closing resource", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	a.logger.Info("Shutdown complete")
	return firstErr
}
