package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/niforms/internal/app"
)

var (
	purgeMaxAge time.Duration
	evictMaxAge time.Duration
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Form cache maintenance",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached forms older than cache.max_age",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		maxAge := purgeMaxAge
		if maxAge <= 0 {
			maxAge = cfg.CacheMaxAge()
		}
		n, err := a.Cache.Purge(cmd.Context(), maxAge)
		if err != nil {
			return err
		}
		logger.Info("cache purged", zap.Int("removed", n), zap.Duration("max_age", maxAge))
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached forms\n", n)
		return nil
	},
}

var honeypotCmd = &cobra.Command{
	Use:   "honeypot",
	Short: "Honeypot token store maintenance",
}

var honeypotEvictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Delete unused honeypot tokens older than honeypot.max_age",
	Long: `Evicts stale tokens from the SQL token store. The session store lives
in the server process, so this only has an effect with honeypot.store: sql.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Evictor == nil {
			return fmt.Errorf("honeypot is disabled")
		}
		if evictMaxAge > 0 {
			a.Evictor.MaxAge = evictMaxAge
		}
		n, err := a.Evictor.EvictOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "evicted %d tokens\n", n)
		return nil
	},
}

func init() {
	cachePurgeCmd.Flags().DurationVar(&purgeMaxAge, "max-age", 0, "override cache.max_age")
	honeypotEvictCmd.Flags().DurationVar(&evictMaxAge, "max-age", 0, "override honeypot.max_age")

	cacheCmd.AddCommand(cachePurgeCmd)
	honeypotCmd.AddCommand(honeypotEvictCmd)
}
