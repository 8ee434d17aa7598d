package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/bike-service/internal/auth"
	"github.com/ukydev/bike-service/internal/config"
	"github.com/ukydev/bike-service/internal/db"
	"github.com/ukydev/bike-service/internal/events"
	"github.com/ukydev/bike-service/internal/handlers"
	"github.com/ukydev/bike-service/internal/service"
)

// app is the wired server together with the resources it must release.
type app struct {
	server  *http.Server
	logger  log.FieldLogger
	closers []func(context.Context) error
}

type stores struct {
	users     db.UserCollection
	mechanics db.MechanicCollection
	bookings  db.BookingCollection
}

func newApp(ctx context.Context, cfg *config.Config, logger log.FieldLogger) (*app, error) {
	a := &app{logger: logger}

	authService, err := auth.NewService(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	st, err := a.openStore(ctx, cfg)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	emitter, err := a.openEvents(cfg)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	identity := service.NewIdentityService(st.users, authService, authService, logger)
	registry := service.NewMechanicRegistry(st.mechanics, st.users, identity, emitter, logger)
	engine := service.NewBookingEngine(st.bookings, st.mechanics, st.users, emitter, logger)

	if cfg.Admin.Email != "" {
		admin, created, err := identity.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			logger.WithField("user_id", admin.ID.Hex()).Info("Bootstrap admin created")
		}
	}

	router := handlers.NewRouter(handlers.Services{
		Identity:  identity,
		Mechanics: registry,
		Bookings:  engine,
		Resolver:  authService,
	}, handlers.RouterOptions{
		AllowRoleSelection: cfg.AllowRoleSelection,
		RateLimitRequests:  cfg.RateLimit.Requests,
		RateLimitWindow:    cfg.RateLimit.Window,
	}, logger)

	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.Store == config.StoreMemory {
		a.logger.Warn("Using in-memory store; data is lost on restart")
		mem := db.NewMemoryStore()
		return stores{users: mem, mechanics: mem, bookings: mem}, nil
	}

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return stores{}, fmt.Errorf("connect to MongoDB: %w", err)
	}
	a.closers = append(a.closers, client.Disconnect)
	a.logger.WithField("database", cfg.MongoDatabase).Info("Connected to MongoDB")

	collections := db.NewCollections(client, cfg.MongoDatabase)
	if err := collections.EnsureIndexes(ctx); err != nil {
		return stores{}, fmt.Errorf("ensure indexes: %w", err)
	}
	return stores{users: collections.Users, mechanics: collections.Mechanics, bookings: collections.Bookings}, nil
}

func (a *app) openEvents(cfg *config.Config) (events.Emitter, error) {
	if cfg.MQTT.Broker == "" {
		return events.Nop{}, nil
	}

	publisher, err := events.NewMQTTPublisher(events.MQTTConfig{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Topic:    cfg.MQTT.Topic,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		QoS:      byte(cfg.MQTT.QoS),
	})
	if err != nil {
		return nil, err
	}
	dispatcher := events.NewDispatcher(publisher, a.logger, cfg.MQTT.QueueSize)

	// Drain the queue before the broker connection goes away.
	a.closers = append(a.closers, func(context.Context) error {
		dispatcher.Close()
		publisher.Close()
		return nil
	})
	a.logger.WithField("broker", cfg.MQTT.Broker).Info("Publishing lifecycle events over MQTT")
	return dispatcher, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.WithError(err).Warn("Error releasing resource")
		}
	}
	a.closers = nil
}

// run serves until ctx is cancelled, then shuts down within timeout.
func (a *app) run(ctx context.Context, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("addr", a.server.Addr).Info("Server starting")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.close(context.Background())
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.close(shutdownCtx)
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("Server exited")
	return nil
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to config YAML file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	logger, err := cfg.NewLogger(os.Stdout)
	if err != nil {
		log.WithError(err).Fatal("Failed to configure logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}
	if err := a.run(ctx, cfg.ShutdownTimeout); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
