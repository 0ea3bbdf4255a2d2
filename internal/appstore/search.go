package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/goldpan/goldpan/internal/metrics"
)

// bubbleResponse mirrors the ranking endpoint payload: ordered identifier
// "bubbles" with no metadata attached.
type bubbleResponse struct {
	Bubbles []struct {
		Name    string `json:"name"`
		Results []struct {
			ID int64 `json:"id"`
		} `json:"results"`
	} `json:"bubbles"`
}

// FetchRanked returns the unique app identifiers for term in authoritative
// display order, capped client-side at the configured result cap. The
// endpoint has no limit parameter and always returns the full ranked set.
// An empty storefront falls back to the configured one.
//
// An empty slice with a nil error means the storefront found no apps for the
// term; that is a result, not a failure.
func (c *Client) FetchRanked(ctx context.Context, term, storefront string) ([]int64, error) {
	if storefront == "" {
		storefront = c.cfg.Storefront
	}
	q := url.Values{}
	q.Set("media", mediaSoftware)
	q.Set("term", term)
	q.Set("country", storefront)
	q.Set("lang", c.cfg.Language)
	if c.cfg.Attribute != "" {
		q.Set("attribute", string(c.cfg.Attribute))
	}

	body, err := c.get(ctx, c.cfg.SearchBase+"?"+q.Encode())
	if err != nil {
		metrics.ObserveFetch("search", "error")
		return nil, &TransientFetchError{Endpoint: "search", Err: err}
	}
	metrics.ObserveFetch("search", "ok")

	var parsed bubbleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &TransientFetchError{Endpoint: "search", Err: fmt.Errorf("decode bubbles: %w", err)}
	}

	seen := make(map[int64]struct{})
	ids := make([]int64, 0, c.cfg.ResultCap)
	for _, bubble := range parsed.Bubbles {
		for _, result := range bubble.Results {
			if result.ID == 0 {
				continue
			}
			if _, dup := seen[result.ID]; dup {
				continue
			}
			seen[result.ID] = struct{}{}
			ids = append(ids, result.ID)
			if len(ids) >= c.cfg.ResultCap {
				c.logger.Debug("ranking capped",
					zap.String("term", term),
					zap.Int("cap", c.cfg.ResultCap),
				)
				return ids, nil
			}
		}
	}
	return ids, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
