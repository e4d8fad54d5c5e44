package cmd

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/forgeline/forgeline/cache"
)

var cacheStatsOutput string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(store *cache.Store) error {
			stats := store.Stats()

			if cacheStatsOutput == "json" {
				data, err := sonic.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				os.Stdout.Write(data)
				fmt.Println()
				return nil
			}

			fmt.Printf("Entries:    %d\n", stats.TotalEntries)
			fmt.Printf("Hits:       %d\n", stats.Hits)
			fmt.Printf("Misses:     %d\n", stats.Misses)
			fmt.Printf("Hit rate:   %.1f%%\n", stats.HitRate*100)
			fmt.Printf("Fill rate:  %.1f%%\n", stats.FillRate*100)
			fmt.Printf("Evictions:  %d\n", stats.Evictions)
			fmt.Printf("Expired:    %d\n", stats.ExpiredEntries)
			fmt.Printf("Size:       %d bytes\n", stats.TotalSizeBytes)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(store *cache.Store) error {
			removed := store.Clear()
			if err := store.Persist(true); err != nil {
				return err
			}
			fmt.Printf("Removed %d entries\n", removed)
			return nil
		})
	},
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(store *cache.Store) error {
			removed := store.CleanupExpired()
			if err := store.Persist(true); err != nil {
				return err
			}
			fmt.Printf("Removed %d expired entries\n", removed)
			return nil
		})
	},
}

var cachePersistCmd = &cobra.Command{
	Use:   "persist",
	Short: "Write the cache snapshot to disk now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(store *cache.Store) error {
			return store.Persist(true)
		})
	},
}

// withCache runs fn against the configured cache store.
func withCache(fn func(*cache.Store) error) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	store := app.Cache()
	if store == nil {
		return fmt.Errorf("the response cache is disabled")
	}
	return fn(store)
}

func init() {
	cacheStatsCmd.Flags().StringVarP(&cacheStatsOutput, "output", "o", "default", "output format (default, json)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
	cacheCmd.AddCommand(cachePersistCmd)
	rootCmd.AddCommand(cacheCmd)
}
