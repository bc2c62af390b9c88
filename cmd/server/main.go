// Package main is the entry point of the application
package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dkovn/match-server/internal/auth"
	"github.com/dkovn/match-server/pkg/config"
	"github.com/dkovn/match-server/pkg/events"
	"github.com/dkovn/match-server/pkg/game"
	"github.com/dkovn/match-server/pkg/matchmaking"
	"github.com/dkovn/match-server/pkg/metrics"
	"github.com/dkovn/match-server/pkg/practice"
	"github.com/dkovn/match-server/pkg/server"
)

// newUpgrader builds the websocket upgrader. With no frontend origin
// configured any origin is accepted, which is the local development mode.
func newUpgrader(frontendPath string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,

		CheckOrigin: func(r *http.Request) bool {
			return frontendPath == "" || frontendPath == r.Header.Get("Origin")
		},
	}
}

// application encapsulates global dependencies
type application struct {
	Auth      *auth.APIKeyAuth
	Logger    *zap.Logger
	Config    *config.Config
	Publisher *events.Publisher
	Registry  *prometheus.Registry
	Queue     *matchmaking.Queue
	Hub       *server.Hub
	Server    *http.Server
	Upgrader  websocket.Upgrader

	StartTime time.Time
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	port := flag.String("port", "", "server port (overrides PORT)")
	flag.Parse()

	// A missing .env file is fine; the environment may be set externally.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	if *debug {
		cfg.Debug = true
	}
	if *port != "" {
		cfg.Port = *port
	}

	// Initialize logger
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	// Initialize event publisher and metrics observers
	publisher := events.NewPublisher()

	promRegistry := prometheus.NewRegistry()
	metrics.New(promRegistry).Observe(publisher)

	// Initialize the match core
	sessionRegistry := game.NewRegistry(publisher, logger)
	queue := matchmaking.NewQueue(sessionRegistry, logger)
	generator := practice.NewGenerator(time.Now().UnixNano())

	hub := server.NewHub(queue, sessionRegistry, generator, publisher, logger)

	app := &application{
		Auth:      auth.NewAPIKeyAuth(cfg.APIKeys),
		Logger:    logger,
		Config:    cfg,
		Publisher: publisher,
		Registry:  promRegistry,
		Queue:     queue,
		Hub:       hub,
		Upgrader:  newUpgrader(cfg.FrontendPath),
		StartTime: time.Now(),
	}

	go app.Hub.Run()
	go app.Queue.Run(cfg.MatchInterval)

	if err := app.serve(); err != nil {
		logger.Fatal("error serving", zap.Error(err))
	}
}

func initLogger(debug bool) *zap.Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	return logger
}

// Shutdown cleans up resources
func (app *application) Shutdown() {
	// Stop pairing before shutting down the hub; pending entries need no flush.
	if app.Queue != nil {
		app.Queue.Stop()
	}

	if app.Hub != nil {
		app.Hub.Shutdown()
	}

	app.Logger.Info("All components shut down successfully")
}
