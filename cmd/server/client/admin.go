package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/services/datasync"
)

var clearCacheType string

var refreshCmd = &cobra.Command{
	Use:   "refresh [types...]",
	Short: "Force a reload of data types",
	Long:  `Drop cached data for the given types (all when none are named) and reload them from the source.`,
	RunE:  runRefresh,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted data freshness",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Clear the gateway response cache",
	Args:  cobra.NoArgs,
	RunE:  runClearCache,
}

func init() {
	clearCacheCmd.Flags().StringVar(&clearCacheType, "type", "", "only clear this data type")
}

type refreshResponse struct {
	Loaded       []codex.DataType `json:"loaded"`
	Fallback     []codex.DataType `json:"fallback"`
	CacheVersion int              `json:"cache_version"`
}

func runRefresh(_ *cobra.Command, args []string) error {
	query := url.Values{}
	for _, raw := range args {
		t, err := codex.ParseDataType(raw)
		if err != nil {
			return err
		}
		query.Add("type", t.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var resp refreshResponse
	if err := postJSON(ctx, "/api/refresh", query, &resp); err != nil {
		return fmt.Errorf("failed to refresh: %w", err)
	}

	fmt.Printf("Cache version: %d\n", resp.CacheVersion)
	fmt.Printf("Loaded: %v\n", resp.Loaded)
	if len(resp.Fallback) > 0 {
		fmt.Printf("Using bundled data: %v\n", resp.Fallback)
	}
	return nil
}

func runStatus(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var resp datasync.StatusOutput
	if err := getJSON(ctx, "/api/sync/status", nil, &resp); err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if resp.LastRefresh.IsZero() {
		fmt.Println("Last refresh: never")
	} else {
		fmt.Printf("Last refresh: %s (fresh: %t)\n", resp.LastRefresh.Format("2006-01-02 15:04:05"), resp.Fresh)
	}
	for _, ts := range resp.Types {
		if !ts.Persisted {
			fmt.Printf("   %-12s not persisted\n", ts.Type)
			continue
		}
		fmt.Printf("   %-12s %d records, updated %s\n", ts.Type, ts.Count, ts.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runClearCache(_ *cobra.Command, _ []string) error {
	query := url.Values{}
	if clearCacheType != "" {
		t, err := codex.ParseDataType(clearCacheType)
		if err != nil {
			return err
		}
		query.Set("type", t.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var resp struct {
		Removed int `json:"removed"`
	}
	if err := postJSON(ctx, "/api/cache/clear", query, &resp); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Printf("Removed %d cached entries\n", resp.Removed)
	return nil
}
