package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"rafflehub/api"
	"rafflehub/application"
	"rafflehub/config"
	"rafflehub/database"
	"rafflehub/domain/events"
	"rafflehub/domain/services"
	"rafflehub/infrastructure"
	"rafflehub/infrastructure/observability"
	"rafflehub/realtime"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the raffle API and WebSocket channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if migrateFirst {
				if err := database.MigrateUp(cfg.GetDatabaseURL()); err != nil {
					return err
				}
			}
			return Run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")

	return cmd
}

// Run initializes and starts the application, blocking until ctx is cancelled
func Run(ctx context.Context, cfg *config.Config) error {
	instanceID := uuid.New().String()
	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"instanceID":  instanceID,
	}).Info("Starting rafflehub")

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	// Initialize database connection
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	hub := realtime.NewHub(cfg.CORSAllowedOrigins, metrics)

	// Event plumbing: local fan-out always, NATS relay when enabled
	var natsClient *infrastructure.NATSClient
	var publisher *infrastructure.DomainEventPublisher
	if cfg.NATSEnabled {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers, "rafflehub-"+instanceID)
		if err := natsClient.Connect(ctx); err != nil {
			db.Close()
			return err
		}
		publisher = infrastructure.NewDomainEventPublisher(natsClient, instanceID, metrics)

		relay := infrastructure.NewNATSEventRelay(natsClient, hub, instanceID, metrics)
		if err := relay.Start(); err != nil {
			natsClient.Close()
			db.Close()
			return err
		}
	} else {
		publisher = infrastructure.NewDomainEventPublisher(nil, instanceID, metrics)
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)
	for _, eventType := range events.AllEventTypes {
		uowFactory.RegisterLocalHandler(eventType, hub.HandleEvent)
	}

	raffleApp := application.NewRaffleApplication(uowFactory, services.Paging{
		DefaultLimit: cfg.DefaultPageLimit,
		MaxLimit:     cfg.MaxPageLimit,
	}, metrics)

	// Start background workers
	expiryWorker := application.NewRaffleExpiryWorker(uowFactory, raffleApp, cfg.ExpiryCheckInterval)
	stopExpiryWorker := expiryWorker.Start(ctx)

	router := api.NewRouter(api.RouterConfig{
		RaffleService:  raffleApp,
		Hub:            hub,
		Database:       db,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Release:        cfg.Environment == "production",
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down rafflehub...")
	case err := <-serverErr:
		runErr = fmt.Errorf("HTTP server failed: %w", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopExpiryWorker()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	hub.Close()

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}

	log.Info("Closing database connection...")
	db.Close()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return runErr
}
