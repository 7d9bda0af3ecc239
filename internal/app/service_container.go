package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"bridge-backend/internal/bridgeerr"
	"bridge-backend/internal/clients"
	"bridge-backend/internal/config"
	"bridge-backend/internal/db"
	"bridge-backend/internal/handlers"
	"bridge-backend/internal/models"
	"bridge-backend/internal/repository"
	"bridge-backend/internal/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer wires repositories, clients, services and handlers.
type ServiceContainer struct {
	DB *gorm.DB

	// Repositories
	ConfigRepo      repository.ConfigRepository
	TransactionRepo repository.TransactionRepository

	// Clients
	SuiClient     *clients.SuiRPCClient
	BuilderClient *clients.TxBuilderClient
	SignerClient  *clients.SignerClient
	LedgerClient  *clients.LedgerClient
	NATSClient    *clients.NATSClient

	// Services
	MintService     *services.MintService
	WithdrawService *services.WithdrawService
	Scheduler       *services.SchedulerService

	// Handlers
	BridgeHandler    *handlers.BridgeHandler
	AdminHandler     *handlers.AdminConfigHandler
	WebSocketHandler *handlers.WebSocketHandler
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once and returns it.
func InitializeContainer() (*ServiceContainer, error) {
	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		container := &ServiceContainer{DB: db.DB}

		container.initRepositories()
		container.initClients()
		container.initServices()
		container.initHandlers()

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, nil
}

func (c *ServiceContainer) initRepositories() {
	log.Println("📦 Initializing Repositories...")
	c.ConfigRepo = repository.NewConfigRepository(c.DB)
	c.TransactionRepo = repository.NewTransactionRepository(c.DB)
}

func (c *ServiceContainer) initClients() {
	log.Println("🔌 Initializing Clients...")
	cfg := config.AppConfig

	// The RPC endpoint follows the is_local flag in the config store so an
	// admin network switch takes effect without a restart.
	suiURLFn := func(ctx context.Context) (string, error) {
		isLocal, found, err := c.ConfigRepo.Get(ctx, models.IsLocalKey)
		if err != nil {
			return "", fmt.Errorf("failed to resolve rpc endpoint: %w", err)
		}
		if !found {
			return "", bridgeerr.ConfigMissing(models.IsLocalKey)
		}
		if isLocal == "true" {
			return cfg.Bridge.TestnetRPCURL, nil
		}
		return cfg.Bridge.MainnetRPCURL, nil
	}

	builderURLFn := c.configStoreFn(models.TxDigestURLKey)
	builderHostFn := c.configStoreFn(models.APIURLKey)

	estimate := uint64(cfg.Bridge.ResponseEstimate)
	builderTimeout := time.Duration(cfg.Builder.Timeout) * time.Second
	c.SuiClient = clients.NewSuiRPCClient(suiURLFn, estimate, builderTimeout)
	c.BuilderClient = clients.NewTxBuilderClient(builderURLFn, builderHostFn, estimate, builderTimeout)
	c.SignerClient = clients.NewSignerClient(cfg.Signer)
	c.LedgerClient = clients.NewLedgerClient(cfg.Ledger)

	if cfg.NATS.Enabled {
		natsClient, err := clients.NewNATSClient(cfg.NATS)
		if err != nil {
			// NATS is optional: the bridge runs without event publishing.
			log.Printf("⚠️ NATS initialization failed, continuing without event bus: %v", err)
		} else {
			c.NATSClient = natsClient
		}
	}
}

func (c *ServiceContainer) initServices() {
	log.Println("⚙️ Initializing Services...")
	cfg := config.AppConfig

	c.WebSocketHandler = handlers.NewWebSocketHandler()

	var bus services.EventBus
	if c.NATSClient != nil {
		bus = c.NATSClient
	}

	c.MintService = services.NewMintService(
		c.ConfigRepo,
		c.TransactionRepo,
		c.SuiClient,
		c.LedgerClient,
		bus,
		c.WebSocketHandler,
		cfg.Bridge.EventPageSize,
		cfg.Bridge.CursorPageSize,
	)

	c.WithdrawService = services.NewWithdrawService(
		c.ConfigRepo,
		c.TransactionRepo,
		c.LedgerClient,
		c.BuilderClient,
		c.SignerClient,
		c.SuiClient,
		bus,
		c.WebSocketHandler,
	)

	c.Scheduler = services.NewSchedulerService(c.MintService, cfg.Scheduler.PollInterval)
}

func (c *ServiceContainer) initHandlers() {
	logger := logrus.StandardLogger()
	c.BridgeHandler = handlers.NewBridgeHandler(c.WithdrawService, c.TransactionRepo, c.SignerClient, logger)
	c.AdminHandler = handlers.NewAdminConfigHandler(c.ConfigRepo, logger)
}

// configStoreFn returns a resolver that reads one config store key at call
// time.
func (c *ServiceContainer) configStoreFn(key string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		value, found, err := c.ConfigRepo.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("failed to read config %q: %w", key, err)
		}
		if !found || value == "" {
			return "", bridgeerr.ConfigMissing(key)
		}
		return value, nil
	}
}

// Shutdown releases external connections.
func (c *ServiceContainer) Shutdown() {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
}
