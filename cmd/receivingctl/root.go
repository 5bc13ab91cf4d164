package main

import (
	"context"
	"fmt"

	"receiving-service/config"
	"receiving-service/internal/broker"
	"receiving-service/internal/redisclient"
	"receiving-service/internal/service"
	"receiving-service/internal/store"
	"receiving-service/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	storeDriver string
	databaseURL string
)

var rootCmd = &cobra.Command{
	Use:   "receivingctl",
	Short: "Operate the receiving catalog and import ledger from a terminal",
	Long: `receivingctl manages the product catalog and the goods-receiving ledger
directly against the configured store, without going through the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return util.InitLogger("cli")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		util.SyncLogger()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "store driver (postgres or memory), overrides STORE_DRIVER")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "database URL, overrides DATABASE_URL")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(productCmd)
	rootCmd.AddCommand(wipeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(scanCmd)
}

// app holds the services a command works with
type app struct {
	cfg     *config.Config
	repo    store.Repository
	redis   *redisclient.Client
	sink    *broker.Producer
	catalog *service.CatalogService
	ledger  *service.LedgerService
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if storeDriver != "" {
		cfg.Database.Driver = storeDriver
	}
	if databaseURL != "" {
		cfg.Database.URL = databaseURL
	}

	repo, err := store.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}

	a := &app{cfg: cfg, repo: repo}

	if cfg.Redis.Enabled {
		rc, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			util.GetLogger().Warn("Redis unavailable, product cache disabled", zap.Error(err))
		} else {
			a.redis = rc
		}
	}

	var sink broker.EventSink
	if cfg.Kafka.Enabled {
		a.sink = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog)
		sink = a.sink
	}
	publisher := broker.NewEventPublisher(sink)

	// a missing passphrase only matters to the wipe command
	guard, _ := service.NewPassphraseGuard(cfg.Security.WipePassphrase, cfg.Security.WipePassphraseHash)

	a.catalog = service.NewCatalogService(repo, a.redis, cfg.Redis.CacheTTL, publisher, guard)
	a.ledger = service.NewLedgerService(repo, a.redis, publisher)
	return a, nil
}

func (a *app) Close() {
	if a.sink != nil {
		a.sink.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	a.repo.Close()
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the products and import_records tables if absent",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s)\n", a.cfg.Database.Driver)
		return nil
	},
}
