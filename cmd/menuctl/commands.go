package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tablebite/ordering/internal/config"
	"github.com/tablebite/ordering/internal/models"
	"github.com/tablebite/ordering/internal/observability"
	"github.com/tablebite/ordering/internal/providers"
	"github.com/tablebite/ordering/internal/repository"
	"github.com/tablebite/ordering/internal/service"
	"github.com/tablebite/ordering/internal/vectorstore"
	"github.com/tablebite/ordering/pkg/database"
)

// env carries what every subcommand needs. Built once in PersistentPreRunE.
type env struct {
	cfg *config.Config
	out io.Writer
}

func newRootCmd() *cobra.Command {
	e := &env{out: os.Stdout}

	var logLevel string

	root := &cobra.Command{
		Use:           "menuctl",
		Short:         "Maintenance tasks for the ordering service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			if logLevel == "" {
				logLevel = cfg.LogLevel
			}

			observability.SetupLogging(logLevel, cmd.ErrOrStderr())

			e.cfg = cfg
			e.out = cmd.OutOrStdout()

			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default from LOG_LEVEL)")

	root.AddCommand(
		newMigrateCmd(e),
		newReindexCmd(e),
		newMenuCmd(e),
		newEmbeddingsCmd(e),
	)

	return root
}

func (e *env) connect(ctx context.Context) (*pgxpool.Pool, error) {
	db, err := database.NewPostgresPool(ctx, e.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	return db, nil
}

func (e *env) menuService(ctx context.Context) (*service.MenuService, error) {
	completion, err := providers.NewCompletionClient(ctx, e.cfg)
	if err != nil {
		return nil, err
	}

	return service.NewMenuService(service.MenuServiceParams{
		Completion: completion,
		Timeout:    e.cfg.LLMTimeout,
	}), nil
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the orders schema and the job queue migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := e.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			schema, err := database.ApplySchema(ctx, db)
			if err != nil {
				return err
			}

			if err := database.MigrateRiver(ctx, db); err != nil {
				return err
			}

			fmt.Fprintf(e.out, "schema applied (embedding cache: %t)\n", schema.EmbeddingCache)

			return nil
		},
	}
}

// newReindexCmd embeds the menu in-process. Useful to warm the embedding cache before deploys;
// the running API keeps its own index and is refreshed through POST /api/assistant/reindex.
func newReindexCmd(e *env) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Embed the menu and store the vectors in the embedding cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			embedder, err := providers.NewEmbedder(ctx, e.cfg)
			if err != nil {
				return err
			}

			if embedder == nil {
				return fmt.Errorf("no embedding provider configured for %q", e.cfg.EmbeddingProvider)
			}

			db, err := e.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			schema, err := database.ApplySchema(ctx, db)
			if err != nil {
				return err
			}

			opts := vectorstore.Options{Embedder: embedder}
			if schema.EmbeddingCache {
				opts.Cache = repository.NewMenuEmbeddingsRepository(db)
			}

			store, err := vectorstore.New(opts)
			if err != nil {
				return err
			}

			menu, err := e.menuService(ctx)
			if err != nil {
				return err
			}

			n, err := service.NewMenuIndexService(menu, store, nil).Reindex(ctx, source)
			if err != nil {
				return err
			}

			fmt.Fprintf(e.out, "indexed %d items from %s menu with %s\n", n, source, embedder.EmbeddingModel())

			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", models.MenuSourceStatic, "menu source: static or live")

	return cmd
}

func newMenuCmd(e *env) *cobra.Command {
	var menuType string

	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Print the menu as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.menuService(cmd.Context())
			if err != nil {
				return err
			}

			items, err := svc.GetMenu(cmd.Context(), menuType)
			if err != nil {
				return err
			}

			return writeJSON(e.out, items)
		},
	}

	cmd.Flags().StringVar(&menuType, "type", models.MenuSourceStatic, "menu type: static or live")

	return cmd
}

func newEmbeddingsCmd(e *env) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "embeddings",
		Short: "Inspect or purge cached menu embeddings",
	}

	cmd.PersistentFlags().StringVar(&model, "model", "", "embedding model (default from EMBEDDING_MODEL)")

	resolveModel := func() string {
		if model != "" {
			return model
		}

		return e.cfg.EmbeddingModel
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached embeddings for a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := e.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := repository.NewMenuEmbeddingsRepository(db).List(ctx, resolveModel())
			if err != nil {
				return err
			}

			for _, r := range rows {
				fmt.Fprintf(e.out, "%s\t%s\t%d\t%s\n",
					r.ContentHash[:12], r.ItemName, len(r.Embedding), r.UpdatedAt.Format("2006-01-02 15:04:05"))
			}

			fmt.Fprintf(e.out, "%d embeddings\n", len(rows))

			return nil
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete cached embeddings for a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := e.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := repository.NewMenuEmbeddingsRepository(db).DeleteModel(ctx, resolveModel())
			if err != nil {
				return err
			}

			fmt.Fprintf(e.out, "deleted %d embeddings\n", n)

			return nil
		},
	}

	cmd.AddCommand(list, purge)

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	return nil
}
