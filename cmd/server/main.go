package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lakehopper/mapclient/internal/api"
	"github.com/lakehopper/mapclient/internal/asset"
	"github.com/lakehopper/mapclient/internal/auth"
	"github.com/lakehopper/mapclient/internal/config"
	"github.com/lakehopper/mapclient/internal/db"
	"github.com/lakehopper/mapclient/internal/engine"
	"github.com/lakehopper/mapclient/internal/export"
	"github.com/lakehopper/mapclient/internal/journal"
	"github.com/lakehopper/mapclient/internal/logging"
	"github.com/lakehopper/mapclient/internal/metrics"
	mw "github.com/lakehopper/mapclient/internal/middleware"
	"github.com/lakehopper/mapclient/internal/notify"
	"github.com/lakehopper/mapclient/internal/playground"
	"github.com/lakehopper/mapclient/internal/replay"
	"github.com/lakehopper/mapclient/internal/session"
	"github.com/lakehopper/mapclient/internal/transport"
	"github.com/lakehopper/mapclient/internal/viewer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "text")
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessionID := uuid.New()

	// Backend transport
	var (
		base    transport.Transport
		runLoop func(ctx context.Context) error
		pump    func() int
	)
	switch cfg.Transport {
	case config.TransportSocket:
		sock, err := transport.DialSocket(ctx, cfg.BackendURL, transport.SocketOptions{
			DialTimeout: cfg.DialTimeout,
			ReadLimit:   cfg.SocketReadLimit,
		})
		if err != nil {
			slog.Error("connect to backend", "error", err, "url", cfg.BackendURL)
			os.Exit(1)
		}
		defer sock.Close()
		base, runLoop = sock, sock.Run
	case config.TransportBridge:
		bus := transport.NewBus()
		defer bus.Close()
		playground.New(transport.NewBridge(bus.Backend()))
		base, runLoop = transport.NewBridge(bus.Client()), bus.Run
		pump = bus.Pump
		slog.Info("using in-process playground backend")
	}

	// Message journal (optional)
	var (
		jrnl    *journal.Journal
		history *replay.Service
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := journal.Migrate(ctx, pool); err != nil {
			slog.Error("migrate journal", "error", err)
			os.Exit(1)
		}
		jrnl, err = journal.New(pool, sessionID)
		if err != nil {
			slog.Error("create journal", "error", err)
			os.Exit(1)
		}
		history = replay.NewService(journal.NewStore(pool), cfg.InitialLocation(), cfg.NotificationTTL)
	}

	// jrnl stays a typed nil when disabled; Record is nil-safe.
	t := transport.Recorded(base, transport.Recorders(jrnl, metrics.TransportRecorder{}))

	eng := engine.NewEngine()
	notes := notify.NewCenter(cfg.NotificationTTL)
	control := session.NewControl(cfg.InitialLocation())
	sess := session.New(sessionID, t, eng, notes, control)

	hub := viewer.NewHub(eng.Seq)
	eng.OnChange(func(seq uint64) {
		hub.Broadcast(viewer.LayersChanged(seq))
	})
	notes.Subscribe(func(n notify.Notification) {
		hub.Broadcast(viewer.NotificationMessage(n))
	})

	authService := auth.NewService(cfg.JWTSecret, cfg.OperatorPassword)
	if !authService.Enabled() {
		slog.Warn("authentication disabled, set JWT_SECRET and OPERATOR_PASSWORD_HASH to enable")
	}
	authHandler := auth.NewHandler(authService)

	assetHandler, err := asset.NewHandler(cfg.AssetDir)
	if err != nil {
		slog.Error("create asset handler", "error", err)
		os.Exit(1)
	}
	exportHandler := export.NewHandler(eng)
	apiHandler := api.NewHandler(sess).WithViewers(hub)
	if pump != nil {
		apiHandler.WithPump(pump)
	}

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Preflight for every route; CORS answers it.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	r.HandleFunc("/auth/token", authHandler.Token).Methods("POST")

	// Viewer-facing read endpoints (public)
	r.HandleFunc("/export/geojson", exportHandler.GeoJSON).Methods("GET")
	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected operator routes
	protected := r.NewRoute().Subrouter()
	protected.Use(authService.AuthMiddleware)
	protected.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST")
	protected.HandleFunc("/assets/{assetId}", assetHandler.Remove).Methods("DELETE")
	apiRouter := protected.PathPrefix("/api").Subrouter()
	apiHandler.Routes(apiRouter)
	if history != nil {
		replay.NewHandler(history).Routes(apiRouter)
	}

	// WebSocket endpoint
	r.HandleFunc("/ws/view", viewer.Handler(hub, authService.Authorize, cfg.OriginHosts()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go hub.Run(ctx)
	if jrnl != nil {
		go jrnl.Run(ctx)
	}

	// The backend loop ends the process on a protocol violation or a lost
	// connection.
	backendFailed := make(chan struct{})
	go func() {
		err := runLoop(ctx)
		var perr *transport.ProtocolError
		switch {
		case errors.As(err, &perr):
			slog.Error("backend protocol violation", "type", perr.Type, "reason", perr.Reason)
		case err != nil && ctx.Err() == nil:
			slog.Error("backend connection lost", "error", err)
		default:
			return
		}
		close(backendFailed)
		cancel()
	}()

	if err := sess.Start(ctx); err != nil {
		slog.Error("start session", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "transport", cfg.Transport, "session", sessionID)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	select {
	case <-backendFailed:
		os.Exit(1)
	default:
	}
}
