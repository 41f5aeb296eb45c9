package client

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-codex/internal/entities/codex"
	"github.com/KirkDiggler/rpg-codex/internal/search"
)

var (
	listTier   string
	listSearch string
	listLimit  int
)

type dataResponse struct {
	Type       codex.DataType `json:"type"`
	Origin     string         `json:"origin"`
	Confidence float64        `json:"confidence"`
	Attempts   int            `json:"attempts"`
	Records    []codex.Record `json:"records"`
	Error      string         `json:"error,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List records of a data type",
	Long:  `List records of one data type (creatures, items, structures, resources, bosses or progression).`,
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

var getCmd = &cobra.Command{
	Use:   "get <type> <slug>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

func init() {
	listCmd.Flags().StringVar(&listTier, "tier", "", "only show records of this tier")
	listCmd.Flags().StringVar(&listSearch, "search", "", "rank records by name match")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of search results")
}

func fetchData(ctx context.Context, raw string) (*dataResponse, error) {
	dataType, err := codex.ParseDataType(raw)
	if err != nil {
		return nil, err
	}

	var resp dataResponse
	if err := getJSON(ctx, "/api/data/"+url.PathEscape(dataType.String()), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", dataType, err)
	}
	return &resp, nil
}

func runList(_ *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := fetchData(ctx, args[0])
	if err != nil {
		return err
	}

	records := resp.Records
	if listTier != "" {
		records = search.Apply(records, codex.Filters{"tier": {listTier}})
	}
	if listSearch != "" {
		records = search.Records(search.Search(records, listSearch, listLimit))
	}

	fmt.Printf("Found %d %s (origin: %s, confidence: %.2f):\n\n",
		len(records), resp.Type, resp.Origin, resp.Confidence)
	if resp.Error != "" {
		fmt.Printf("Source error: %s\n\n", resp.Error)
	}

	for _, r := range records {
		fmt.Printf("%s (%s)", r.Name, r.Slug)
		if r.Tier != "" {
			fmt.Printf(" [%s]", r.Tier)
		}
		if r.Category != "" {
			fmt.Printf(" %s", r.Category)
		}
		fmt.Println()
	}
	return nil
}

func runGet(_ *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := fetchData(ctx, args[0])
	if err != nil {
		return err
	}

	for _, r := range resp.Records {
		if r.Slug != args[1] {
			continue
		}

		fmt.Printf("%s\n", r.Name)
		fmt.Printf("   Type: %s\n", r.Type.Singular())
		if r.Tier != "" {
			fmt.Printf("   Tier: %s\n", r.Tier)
		}
		if r.Category != "" {
			fmt.Printf("   Category: %s\n", r.Category)
		}
		if r.Description != "" {
			fmt.Printf("   Description: %s\n", r.Description)
		}
		if len(r.Attributes) > 0 {
			keys := make([]string, 0, len(r.Attributes))
			for k := range r.Attributes {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			fmt.Printf("   Attributes:\n")
			for _, k := range keys {
				fmt.Printf("     - %s: %s\n", k, r.Field(k))
			}
		}
		return nil
	}

	return fmt.Errorf("no %s with slug %q", resp.Type.Singular(), args[1])
}
