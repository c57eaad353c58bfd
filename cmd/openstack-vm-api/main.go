package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	apiserver "github.com/dcm-project/openstack-service-provider/internal/api_server"
	"github.com/dcm-project/openstack-service-provider/internal/config"
	"github.com/dcm-project/openstack-service-provider/internal/events"
	handlersv1 "github.com/dcm-project/openstack-service-provider/internal/handlers/v1"
	"github.com/dcm-project/openstack-service-provider/internal/provider"
	"github.com/dcm-project/openstack-service-provider/internal/service"
	"github.com/dcm-project/openstack-service-provider/internal/store"
)

func main() {
	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	if err := runCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var runCmd = &cobra.Command{
	Use:   "openstack-vm-api",
	Short: "Run the VM lifecycle API",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer zap.S().Info("API service stopped")

		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		zap.S().Info("Starting API service...")

		db, err := openDatabase(cfg.Database)
		if err != nil {
			zap.S().Fatalw("opening database", "error", err)
		}
		if err := store.Migrate(db); err != nil {
			zap.S().Fatalw("migrating database", "error", err)
		}
		dataStore := store.NewStore(db)
		defer dataStore.Close()

		client, simulated := selectProvider(cfg.OpenStack)

		publisher, err := events.NewPublisher(events.PublisherConfig{
			NATSURL: cfg.Events.NATSURL,
		})
		if err != nil {
			zap.S().Fatalw("connecting event publisher", "error", err)
		}
		defer publisher.Close()

		vmService := service.NewVMService(dataStore, client, publisher)
		handler := handlersv1.NewHandler(vmService, client, dataStore, handlersv1.Options{
			Version:   cfg.Service.Version,
			Simulated: simulated,
			Debug:     cfg.Service.Debug,
		})

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		listener, err := net.Listen("tcp", cfg.Service.Address)
		if err != nil {
			zap.S().Fatalw("creating listener", "error", err)
		}

		zap.S().Infow("listening", "address", listener.Addr().String(), "simulated_provider", simulated)
		server := apiserver.New(cfg, listener, handler)
		if err := server.Run(ctx); err != nil {
			zap.S().Fatalw("running server", "error", err)
		}
		return nil
	},
}

func openDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{})
	}
}

// selectProvider picks the real client only when simulation is disabled and
// credentials are complete; otherwise it falls back to the simulator.
func selectProvider(cfg *config.OpenStackConfig) (provider.Client, bool) {
	if cfg.UseSimulator {
		zap.S().Info("Using simulated compute provider")
		return provider.NewSimulator(), true
	}
	if !cfg.CredentialsConfigured() {
		zap.S().Warn("OpenStack credentials not configured, falling back to simulator")
		return provider.NewSimulator(), true
	}
	zap.S().Info("Using OpenStack compute provider")
	return provider.NewOpenStackClient(cfg), false
}
