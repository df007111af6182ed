package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/enum"
	"github.com/cateradmin/api/internal/gateway"
	"github.com/cateradmin/api/internal/rank"
	"github.com/cateradmin/api/internal/service"
	"github.com/cateradmin/api/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	cfg         = config.Load()
	schemeName  string
	schemesFile string
	backendName string
	apiBaseURL  string
	apiSecret   string
	databaseURL string
	dryRun      bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:          "rankctl",
	Short:        "Catalog position tool",
	Long:         "Check, move and renumber catalog positions through the catalog API or directly in Postgres.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&schemeName, "scheme", "s", "food_packages", "catalog scheme to operate on")
	rootCmd.PersistentFlags().StringVar(&schemesFile, "schemes-file", cfg.SchemesFile, "YAML file with scheme definitions")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", cfg.Backend, "backend: http or postgres")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api", cfg.APIBaseURL, "catalog API base URL")
	rootCmd.PersistentFlags().StringVar(&apiSecret, "secret", cfg.APISecret, "secret used to sign catalog API requests")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", cfg.DatabaseURL, "Postgres connection string")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "preview changes without persisting them")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show detailed output")

	rootCmd.AddCommand(schemesCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(normalizeCmd)
}

// openBackend connects to the configured backend. The returned func
// releases it.
func openBackend(ctx context.Context) (service.Backend, func(), error) {
	switch backendName {
	case enum.BackendHTTP:
		return gateway.NewClient(apiBaseURL, apiSecret, cfg.APITimeout), func() {}, nil
	case enum.BackendPostgres:
		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return store.NewPositionStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backendName)
	}
}

func loadScheme() (config.Scheme, error) {
	schemes, err := config.LoadSchemes(schemesFile)
	if err != nil {
		return config.Scheme{}, fmt.Errorf("failed to load schemes: %w", err)
	}
	scheme, ok := config.FindScheme(schemes, schemeName)
	if !ok {
		return config.Scheme{}, fmt.Errorf("unknown scheme %q", schemeName)
	}
	return scheme, nil
}

// openSession loads the selected scheme into a fresh editing session.
func openSession(ctx context.Context) (*service.Session, func(), error) {
	schemes, err := config.LoadSchemes(schemesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load schemes: %w", err)
	}
	backend, release, err := openBackend(ctx)
	if err != nil {
		return nil, nil, err
	}

	session, err := service.NewManager(schemes, backend, nil).Open(ctx, schemeName)
	if err != nil {
		release()
		return nil, nil, err
	}
	return session, release, nil
}

// printPartition prints one partition as "position  id  name".
func printPartition(key rank.PartitionKey, items []rank.Item) {
	fmt.Printf("%s\n", key)
	for _, it := range items {
		name := ""
		if d, ok := it.Payload.(gateway.Display); ok {
			name = d.Name
		}
		fmt.Printf("  %3d  %-10s %s\n", it.Rank, it.ID, name)
	}
}

// printValidation prints each invalid partition to stderr.
func printValidation(verrs rank.ValidationErrors) {
	for _, v := range verrs {
		fmt.Fprintf(os.Stderr, "\033[31mERROR: \033[0m%s\n", v.Error())
	}
}
