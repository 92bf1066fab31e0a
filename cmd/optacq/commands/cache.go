package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/optacq/internal/chaincache"
	"github.com/wonny/optacq/internal/metrics"
)

// cacheCmd manages the chain cache
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "체인 캐시 관리",
	Long: `Inspects and clears the on-disk option chain cache.

Subcommands:
  stats            - record counts and size
  clear [ticker]   - remove one ticker, or everything
  purge            - remove expired and corrupt records

Example:
  go run ./cmd/optacq cache clear AAPL`,
}

var (
	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "캐시 통계",
		RunE:  runCacheStats,
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear [ticker]",
		Short: "캐시 삭제",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCacheClear,
	}

	cachePurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "만료/손상 레코드 정리",
		RunE:  runCachePurge,
	}
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}

// openCache opens the configured store; a disabled cache is an error here
func openCache() (chaincache.Store, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.Cache.Enabled {
		return nil, fmt.Errorf("cache is disabled (CACHE_ENABLED=false)")
	}
	return chaincache.New(cfg.Cache, log, metrics.New()), nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	st, err := store.Stats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, "Chain Cache")
	PrintKeyValue(out, "Dir", st.Dir, 10)
	PrintKeyValue(out, "TTL", fmt.Sprintf("%dh", st.TTLHours), 10)
	PrintKeyValue(out, "Tickers", fmt.Sprintf("%d", st.Tickers), 10)
	PrintKeyValue(out, "Chains", fmt.Sprintf("%d", st.Chains), 10)
	PrintKeyValue(out, "Listings", fmt.Sprintf("%d", st.Listings), 10)
	PrintKeyValue(out, "Expired", fmt.Sprintf("%d", st.Expired), 10)
	PrintKeyValue(out, "Size", fmt.Sprintf("%.1f KiB", float64(st.Bytes)/1024), 10)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if err := store.Clear(args[0]); err != nil {
			return err
		}
		PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("cleared %s", args[0]))
		return nil
	}

	if err := store.ClearAll(); err != nil {
		return err
	}
	PrintSuccess(cmd.OutOrStdout(), "cleared all tickers")
	return nil
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	removed, err := store.Purge()
	if err != nil {
		return err
	}
	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("purged %d records", removed))
	return nil
}
