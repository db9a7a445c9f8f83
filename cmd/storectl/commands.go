package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcmexdev/storefront/internal/config"
	"github.com/jcmexdev/storefront/internal/store/adapters/events"
	"github.com/jcmexdev/storefront/internal/store/adapters/httpx"
	"github.com/jcmexdev/storefront/internal/store/adapters/sqlstore"
	"github.com/jcmexdev/storefront/internal/store/app"
)

func migrateUpCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-up",
		Short: "apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.MigrateUp(); err != nil {
				return err
			}
			version, _, err := st.MigrationVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated up to version %d\n", version)
			return nil
		},
	}
}

func migrateDownCommand(cfg *config.Config) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "migrate-down",
		Short: "revert every migration, dropping all data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("migrate-down drops every table; pass --yes to confirm")
			}
			st, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.MigrateDown(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrated down")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all data")
	return cmd
}

func seedCommand(cfg *config.Config) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "load sample users, products and orders (get-or-create)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := loadFixture(file)
			if err != nil {
				return err
			}
			svc, err := open(*cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			seeder := app.NewSeeder(svc.store, svc.catalog, svc.orders, svc.accounts)
			res, err := seeder.Seed(cmd.Context(), fixture)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded: %d users, %d products, %d orders created\n",
				res.UsersCreated, res.ProductsCreated, res.OrdersCreated)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML fixture to load instead of the built-in sample")
	return cmd
}

func loadFixture(path string) (app.Fixture, error) {
	if path == "" {
		return app.SampleFixture()
	}
	f, err := os.Open(path)
	if err != nil {
		return app.Fixture{}, err
	}
	defer f.Close()
	return app.LoadFixture(f)
}

func resetCommand(cfg *config.Config) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "delete every user except the admin, with their orders, then ensure the admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := cfg.AdminSpec()
			if !yes {
				return fmt.Errorf("reset deletes every user except %q; pass --yes to confirm", spec.Username)
			}
			svc, err := open(*cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.accounts.Reset(cmd.Context(), spec)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted %d users and %d orders\n", res.DeletedUsers, res.DeletedOrders)
			printPlan(out, spec.Username, res.Plan)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting users")
	return cmd
}

func ensureAdminCommand(cfg *config.Config) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "ensure-admin",
		Short: "create or update the admin account to match the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := cfg.AdminSpec()
			svc, err := open(*cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			if dryRun {
				plan, err := svc.accounts.Plan(cmd.Context(), spec)
				if err != nil {
					return err
				}
				printPlan(cmd.OutOrStdout(), spec.Username, plan)
				return nil
			}
			plan, err := svc.accounts.EnsureAccount(cmd.Context(), spec)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), spec.Username, plan)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only print what would change")
	return cmd
}

func verifyAdminCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-admin",
		Short: "check that the admin account exists with the configured password and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open(*cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			u, err := svc.accounts.VerifyAccount(cmd.Context(), cfg.AdminSpec())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s <%s> OK (staff=%t superuser=%t active=%t)\n",
				u.Username, u.Email, u.IsStaff, u.IsSuperuser, u.IsActive)
			return nil
		},
	}
}

func reportCommand(cfg *config.Config) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "print spend, sales, inventory and order statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := open(*cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.reports.Build(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(httpx.NewReportResponse(report))
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func relayCommand(cfg *config.Config) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "publish pending order events to Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("no Kafka brokers configured; set KAFKA_BROKERS")
			}
			svc, err := open(*cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			producer, err := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				return err
			}
			defer producer.Close()

			relay := app.NewRelay(svc.store, producer, cfg.Kafka.RelayBatch, cfg.Kafka.RelayInterval)
			if !once {
				fmt.Fprintf(cmd.OutOrStdout(), "Relaying to %s on %s\n", cfg.Kafka.Topic, strings.Join(cfg.Kafka.Brokers, ","))
				return relay.Run(cmd.Context())
			}
			n, err := relay.RelayOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Relayed %d events\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "publish a single batch and exit")
	return cmd
}
