// Package client provides commands for querying a running codex server
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Connection flags
	serverURL string
	adminAddr string
	timeout   time.Duration
)

// ClientCmd is the root command for all client commands
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for a running codex server",
	Long:  `Client commands query a running codex server over its JSON API and gRPC health service.`,
}

func init() {
	ClientCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "HTTP server base URL")
	ClientCmd.PersistentFlags().StringVar(&adminAddr, "admin", "localhost:50051", "gRPC admin address")
	ClientCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	ClientCmd.AddCommand(healthCmd)
	ClientCmd.AddCommand(listCmd)
	ClientCmd.AddCommand(getCmd)
	ClientCmd.AddCommand(refreshCmd)
	ClientCmd.AddCommand(statusCmd)
	ClientCmd.AddCommand(clearCacheCmd)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func endpoint(path string, query url.Values) string {
	u := strings.TrimRight(serverURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	return doJSON(ctx, http.MethodGet, endpoint(path, query), dst)
}

func postJSON(ctx context.Context, path string, query url.Values, dst any) error {
	return doJSON(ctx, http.MethodPost, endpoint(path, query), dst)
}

func doJSON(ctx context.Context, method, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", u, err)
	}
	defer func() {
		_ = resp.Body.Close() // nolint:errcheck // safe to ignore in cleanup
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("server returned %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
