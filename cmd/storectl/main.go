package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jcmexdev/storefront/internal/config"
	"github.com/jcmexdev/storefront/internal/pkg/cache"
	"github.com/jcmexdev/storefront/internal/pkg/telemetry"
	"github.com/jcmexdev/storefront/internal/store/adapters/sqlstore"
	"github.com/jcmexdev/storefront/internal/store/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg config.Config
	rootCmd := &cobra.Command{
		Use:           "storectl",
		Short:         "storefront maintenance jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			telemetry.InitLogger(cfg.SlogLevel())
			return nil
		},
	}
	rootCmd.AddCommand(
		migrateUpCommand(&cfg),
		migrateDownCommand(&cfg),
		seedCommand(&cfg),
		resetCommand(&cfg),
		ensureAdminCommand(&cfg),
		verifyAdminCommand(&cfg),
		reportCommand(&cfg),
		relayCommand(&cfg),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// services holds an open store and the application services built on it.
type services struct {
	store    *sqlstore.Store
	cache    cache.Cache
	catalog  *app.Catalog
	orders   *app.Orders
	accounts *app.Accounts
	reports  *app.Reports
}

// open connects to the configured database and applies pending migrations.
func open(cfg config.Config) (*services, error) {
	st, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := st.MigrateUp(); err != nil {
		_ = st.Close()
		return nil, err
	}
	opts, productCache := serviceOptions(cfg)
	return &services{
		store:    st,
		cache:    productCache,
		catalog:  app.NewCatalog(st, opts...),
		orders:   app.NewOrders(st, opts...),
		accounts: app.NewAccounts(st, opts...),
		reports:  app.NewReports(st),
	}, nil
}

// serviceOptions mirrors the storefront server's options. Jobs that change
// the catalog must clear the same Redis keys the server reads, so the cache
// is shared whenever an address is configured.
func serviceOptions(cfg config.Config) ([]app.Option, cache.Cache) {
	opts := []app.Option{
		app.WithAutoRecalculate(cfg.Orders.AutoRecalculate),
		app.WithStatusPolicy(cfg.StatusPolicy()),
	}
	if cfg.Redis.Addr == "" {
		return opts, nil
	}
	productCache := cache.NewRedisCache(cfg.Redis.Addr, cfg.ServiceName)
	return append(opts, app.WithCache(productCache, cfg.Redis.TTL)), productCache
}

func (s *services) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("close cache", "error", err)
		}
	}
	if err := s.store.Close(); err != nil {
		slog.Error("close store", "error", err)
	}
}
