package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/kesara/purple/internal/config"
	"github.com/rs/zerolog"
)

// Client posts batched change notifications to the external precompute
// system. An empty URL disables delivery; the poller still advances its
// checkpoint so changes are not replayed once a sink is configured.
type Client struct {
	url  string
	http *http.Client
	log  zerolog.Logger
}

// NewClient creates a notification client from configuration
func NewClient(cfg config.NotifyConfig, log zerolog.Logger) *Client {
	return &Client{
		url:  cfg.URL,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With().Str("service", "notify_client").Logger(),
	}
}

// NotifyChanged sends one batched notification naming the changed
// documents. The payload joins the sorted ids into a comma-separated
// string, the shape the receiving system expects.
func (c *Client) NotifyChanged(ctx context.Context, rfcIDs []int64) error {
	if c.url == "" {
		c.log.Warn().Int("count", len(rfcIDs)).Msg("No notification URL configured, dropping batch")
		return nil
	}

	sorted := make([]int64, len(rfcIDs))
	copy(sorted, rfcIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	body, err := json.Marshal(map[string]string{"rfcs": strings.Join(parts, ",")})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification sink returned status %d", resp.StatusCode)
	}

	c.log.Info().Int("count", len(sorted)).Msg("Delivered change notification")
	return nil
}
