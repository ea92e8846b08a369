//-------------------------------------------------------------------------
//
// db-migrator - V4 to V5 data migration toolkit
//
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"github.com/spf13/cobra"

	"github.com/jeenops/db-migrator/internal/logging"
	"github.com/jeenops/db-migrator/internal/schema"
	"github.com/jeenops/db-migrator/internal/seed"
)

var (
	seedUsers int
	seedSeed  uint64
	seedDrop  bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate a scratch database with a synthetic legacy tenant",
	Long: `Create the legacy tables for the configured prefix in the source
database and fill them with synthetic data. Intended for rehearsing a
migration against a scratch database before touching production data.

Existing tables for the prefix are dropped and recreated.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedUsers, "users", 0,
		"number of tenant users to create")
	seedCmd.Flags().Uint64Var(&seedSeed, "seed", 0,
		"random seed for reproducible data")
	seedCmd.Flags().BoolVar(&seedDrop, "recreate", true,
		"drop and recreate the tenant tables before seeding")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	seedCfg := seed.DefaultConfig()
	if seedUsers > 0 {
		seedCfg.Users = seedUsers
	}
	if seedSeed != 0 {
		seedCfg.Seed = seedSeed
	}

	ctx := cmd.Context()
	pool, err := connectSource(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	seeder := seed.New(pool, cfg.Prefix, seedCfg)
	if seedDrop {
		if err := seeder.CreateTables(ctx); err != nil {
			return err
		}
	}

	logging.Info().
		Str("prefix", cfg.Prefix).
		Int("users", seedCfg.Users).
		Msg("Seeding synthetic tenant")

	summary, err := seeder.Run(ctx)
	if err != nil {
		return err
	}

	for _, logical := range schema.ExtractionOrder {
		cmd.Printf("  %-16s %d rows\n", logical, summary[logical])
	}
	return nil
}
