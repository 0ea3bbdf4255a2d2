package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goldpan/goldpan/internal/metrics"
)

// lookupResponse mirrors the lookup endpoint payload. Field types follow the
// wire format: fileSizeBytes arrives as a string, release dates as RFC3339.
type lookupResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []lookupResult `json:"results"`
}

type lookupResult struct {
	WrapperType                string   `json:"wrapperType"`
	TrackID                    int64    `json:"trackId"`
	BundleID                   string   `json:"bundleId"`
	TrackName                  string   `json:"trackName"`
	ArtistName                 string   `json:"artistName"`
	AverageUserRating          float64  `json:"averageUserRating"`
	UserRatingCount            int64    `json:"userRatingCount"`
	ReleaseDate                string   `json:"releaseDate"`
	CurrentVersionReleaseDate  string   `json:"currentVersionReleaseDate"`
	Version                    string   `json:"version"`
	PrimaryGenreName           string   `json:"primaryGenreName"`
	FileSizeBytes              string   `json:"fileSizeBytes"`
	MinimumOSVersion           string   `json:"minimumOsVersion"`
	LanguageCodes              []string `json:"languageCodesISO2A"`
	ContentAdvisoryRating      string   `json:"contentAdvisoryRating"`
}

// LookupAll fetches metadata for the given identifiers, chunked to respect
// the per-call identifier limit. Order of the result is unspecified; callers
// key by identifier. An empty storefront falls back to the configured one.
//
// A failed chunk is isolated: its identifiers are simply absent from the
// returned map. Only when every chunk fails does the whole call fail.
func (c *Client) LookupAll(ctx context.Context, ids []int64, storefront string) (map[int64]App, error) {
	if storefront == "" {
		storefront = c.cfg.Storefront
	}
	ids = dedupe(ids)
	apps := make(map[int64]App, len(ids))
	if len(ids) == 0 {
		return apps, nil
	}

	var (
		chunks    int
		failed    int
		lastError error
	)
	for start := 0; start < len(ids); start += c.cfg.ChunkSize {
		end := start + c.cfg.ChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunks++

		results, err := c.lookupChunk(ctx, ids[start:end], storefront)
		if err != nil {
			failed++
			lastError = err
			metrics.ObserveLookupChunk("error")
			c.logger.Warn("lookup chunk failed",
				zap.Int("chunk_start", start),
				zap.Int("chunk_len", end-start),
				zap.Error(err),
			)
			continue
		}
		metrics.ObserveLookupChunk("ok")
		for id, app := range results {
			apps[id] = app
		}
	}

	if failed == chunks {
		return nil, &TransientFetchError{Endpoint: "lookup", Err: fmt.Errorf("all %d chunks failed: %w", chunks, lastError)}
	}
	return apps, nil
}

func (c *Client) lookupChunk(ctx context.Context, ids []int64, storefront string) (map[int64]App, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	q := url.Values{}
	q.Set("id", strings.Join(parts, ","))
	q.Set("country", storefront)
	q.Set("lang", c.cfg.Language)
	// media+entity both pinned to software so only iOS apps come back.
	q.Set("media", mediaSoftware)
	q.Set("entity", entitySoftware)

	body, err := c.get(ctx, c.cfg.LookupBase+"?"+q.Encode())
	if err != nil {
		metrics.ObserveFetch("lookup", "error")
		return nil, err
	}
	metrics.ObserveFetch("lookup", "ok")

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode lookup: %w", err)
	}

	apps := make(map[int64]App, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.WrapperType != "" && r.WrapperType != "software" {
			continue
		}
		if r.TrackID == 0 {
			continue
		}
		apps[r.TrackID] = r.toApp()
	}
	return apps, nil
}

func (r lookupResult) toApp() App {
	size, _ := strconv.ParseInt(r.FileSizeBytes, 10, 64)
	return App{
		ID:               r.TrackID,
		BundleID:         r.BundleID,
		Title:            r.TrackName,
		Developer:        r.ArtistName,
		Rating:           r.AverageUserRating,
		RatingCount:      r.UserRatingCount,
		FirstReleaseAt:   parseReleaseDate(r.ReleaseDate),
		CurrentReleaseAt: parseReleaseDate(r.CurrentVersionReleaseDate),
		Version:          r.Version,
		Genre:            r.PrimaryGenreName,
		FileSizeBytes:    size,
		MinimumOSVersion: r.MinimumOSVersion,
		Languages:        r.LanguageCodes,
		AgeRating:        r.ContentAdvisoryRating,
	}
}

func parseReleaseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
