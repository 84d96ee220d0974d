package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morezero/fred-gateway/internal/config"
	"github.com/morezero/fred-gateway/internal/server"
	"github.com/morezero/fred-gateway/migrations"
	"github.com/morezero/fred-gateway/pkg/catalog"
	"github.com/morezero/fred-gateway/pkg/db"
	"github.com/morezero/fred-gateway/pkg/fred"
	"github.com/morezero/fred-gateway/pkg/mcp"
	"github.com/morezero/fred-gateway/pkg/registry"
)

const envHelp = `Environment: PORT (REST, default 3000), MCP_PORT (MCP, default 3001), FRED_API_KEY,
STRICT_ENUMS, COMMS_ENABLED, COMMS_URL, AUDIT_DATABASE_URL, RUN_MIGRATIONS, MIGRATION_PATH,
METRICS_ENABLED, LOG_LEVEL. A .env file in the working directory is loaded first.`

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fred-gateway",
		Short:         "REST and MCP gateway to the FRED economic data API",
		Long:          "fred-gateway serves FRED series, search and browse operations over REST, MCP (JSON-RPC over HTTP) and optionally NATS.\n\n" + envHelp,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), string(server.ModeAll))
		},
	}
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newEnsureDBCmd(),
		newAuditCmd(),
		newOperationsCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "serve [rest|mcp|all]",
		Short:     "Start the gateway (default: both REST and MCP listeners)",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(server.ModeREST), string(server.ModeMCP), string(server.ModeAll)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := ""
			if len(args) == 1 {
				mode = args[0]
			}
			return runServe(cmd.Context(), mode)
		},
	}
}

func runServe(ctx context.Context, modeArg string) error {
	mode, err := server.ParseMode(modeArg)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return server.Run(ctx, cfg, mode)
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the audit log schema (requires AUDIT_DATABASE_URL)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run audit log migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					migs, err := migrations.Load(cfg.MigrationPath)
					if err != nil {
						return fmt.Errorf("load migrations: %w", err)
					}
					if err := db.RunMigrations(ctx, pool, migs); err != nil {
						return fmt.Errorf("run migrations: %w", err)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					migs, err := migrations.Load(cfg.MigrationPath)
					if err != nil {
						return fmt.Errorf("load migrations: %w", err)
					}
					status, err := db.MigrationStatus(ctx, pool, migs)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), status)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back migrations (not supported; migrations are forward-only)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
					return db.MigrationDown(ctx, pool)
				})
			},
		},
	)
	return cmd
}

func newEnsureDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-db [name]",
		Short: "Create the audit database if missing (default: the database named in AUDIT_DATABASE_URL)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDBConfig()
			if err != nil {
				return err
			}
			target := cfg.AuditDatabaseURL
			if len(args) == 1 && args[0] != "" {
				if target, err = withDatabaseName(target, args[0]); err != nil {
					return err
				}
			}
			if err := db.EnsureDatabase(cmd.Context(), target); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Audit database is ready.")
			return nil
		},
	}
}

// withDatabaseName replaces the database path of a Postgres URL, keeping the query.
func withDatabaseName(databaseURL, name string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse AUDIT_DATABASE_URL: %w", err)
	}
	u.Path = "/" + name
	return u.String(), nil
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect or clear the dispatch audit log",
	}

	var before time.Duration
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete audit records (all, or only those older than --before)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				var cutoff time.Time
				if before > 0 {
					cutoff = time.Now().Add(-before)
				}
				n, err := db.ClearAuditLog(ctx, pool, cutoff)
				if err != nil {
					return err
				}
				if cutoff.IsZero() {
					fmt.Fprintln(cmd.OutOrStdout(), "Audit log truncated.")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d audit records.\n", n)
				}
				return nil
			})
		},
	}
	clearCmd.Flags().DurationVar(&before, "before", 0, "only delete records older than this age (e.g. 720h)")

	var limit int
	var asJSON bool
	recent := &cobra.Command{
		Use:   "recent",
		Short: "Show the newest audit records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				recs, err := db.NewRepository(pool).RecentDispatches(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), recs)
				}
				return writeRecords(cmd.OutOrStdout(), recs)
			})
		},
	}
	recent.Flags().IntVar(&limit, "limit", 50, "number of records")
	recent.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	var since time.Duration
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Count dispatches per operation and outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				counts, err := db.NewRepository(pool).OutcomeSummary(ctx, time.Now().Add(-since))
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "OPERATION\tOUTCOME\tCOUNT")
				for _, c := range counts {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Operation, c.Outcome, c.Count)
				}
				return tw.Flush()
			})
		},
	}
	summary.Flags().DurationVar(&since, "since", 24*time.Hour, "window to summarize")

	cmd.AddCommand(clearCmd, recent, summary)
	return cmd
}

func writeRecords(w io.Writer, recs []db.DispatchRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTRANSPORT\tOPERATION\tOUTCOME\tMS\tREQUEST ID")
	for _, r := range recs {
		op := r.Operation
		if r.Variant != "" {
			op += "/" + r.Variant
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Created.Format(time.RFC3339), r.Transport, op, r.Outcome, r.DurationMs, r.RequestID)
	}
	return tw.Flush()
}

func newOperationsCmd() *cobra.Command {
	var schemas bool
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List the registered operations and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// The client is never called; it only satisfies the operation bindings.
			reg, err := catalog.New(fred.NewClient(fred.Options{}))
			if err != nil {
				return err
			}
			if schemas {
				return writeJSON(cmd.OutOrStdout(), mcp.BuildTools(reg))
			}
			return writeOperations(cmd.OutOrStdout(), reg)
		},
	}
	cmd.Flags().BoolVar(&schemas, "schemas", false, "print MCP tool input schemas as JSON")
	return cmd
}

func writeOperations(w io.Writer, reg *registry.Registry) error {
	for _, op := range reg.Operations() {
		fmt.Fprintf(w, "%s (tool %s)\n  %s\n", op.Name, op.ToolName, op.Description)
		if op.Selector != "" {
			fmt.Fprintf(w, "  %s: %s\n", op.Selector, strings.Join(op.VariantNames(), ", "))
			for _, v := range op.Variants {
				for _, f := range v.Params.Fields {
					need := "optional"
					if f.Required {
						need = "required"
					}
					fmt.Fprintf(w, "    %s (%s, %s for %s)\n", f.Name, f.Kind, need, v.Name)
				}
			}
		}
		for _, f := range op.Params.Fields {
			line := fmt.Sprintf("    %s (%s", f.Name, f.Kind)
			if f.Required {
				line += ", required"
			}
			if f.Default != nil {
				line += fmt.Sprintf(", default %v", f.Default)
			}
			fmt.Fprintln(w, line+")")
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withPool opens the audit database for one command.
func withPool(ctx context.Context, fn func(context.Context, *config.Config, *pgxpool.Pool) error) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	if err := server.SetupLogging(cfg.LogLevel); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.AuditDatabaseURL, db.PoolOptions{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}
