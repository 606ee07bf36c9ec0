package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"live-quiz-service/internal/domain"
	pgloader "live-quiz-service/internal/infra/postgres"
)

// NewCatalogCmd loads and validates the configured catalog, optionally seeding Postgres
// with it.
func NewCatalogCmd(configPath *string) *cobra.Command {
	var (
		asJSON bool
		seed   bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate and print the configured quiz catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			d, err := openDeps(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.close()

			loader, err := d.catalogLoader(cfg)
			if err != nil {
				return err
			}
			catalog, err := loader.LoadCatalog(ctx)
			if err != nil {
				return err
			}

			if seed {
				if d.pool == nil {
					return fmt.Errorf("seeding needs postgres.url")
				}
				if cfg.Catalog.Source == "postgres" {
					return fmt.Errorf("seeding needs a static or file catalog source")
				}
				if err := runMigrationsWithConfig(ctx, cfg); err != nil {
					return err
				}
				if err := pgloader.NewCatalogLoader(d.pool).SaveCatalog(ctx, catalog); err != nil {
					return err
				}
				if err := d.invalidatePostgresCatalog(ctx, cfg); err != nil {
					log.Warn().Err(err).Msg("could not invalidate cached catalog")
				}
				log.Info().Int("sessions", len(catalog.Sessions)).Msg("catalog seeded into postgres")
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(catalog)
			}
			return printCatalog(cmd.OutOrStdout(), catalog)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the normalized catalog as JSON")
	cmd.Flags().BoolVar(&seed, "seed", false, "upsert the catalog into postgres")
	return cmd
}

func printCatalog(w io.Writer, catalog domain.Catalog) error {
	for _, s := range catalog.Sessions {
		if _, err := fmt.Fprintf(w, "session %d  %s  (%d questions)\n", s.ID, s.Name, len(s.Questions)); err != nil {
			return err
		}
		for _, q := range s.Questions {
			if _, err := fmt.Fprintf(w, "  %-8s %3ds  %s\n", q.ID, q.TimeLimit, q.Prompt); err != nil {
				return err
			}
		}
	}
	return nil
}
