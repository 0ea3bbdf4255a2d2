package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// LookupTarget identifies a single app in one of the shapes the lookup
// endpoint accepts. Construct with ByID, ByBundleID, or ByURL; DetectTarget
// disambiguates free-form input.
type LookupTarget struct {
	kind     targetKind
	id       int64
	bundleID string
}

type targetKind int

const (
	targetInvalid targetKind = iota
	targetID
	targetBundleID
)

var storeURLPattern = regexp.MustCompile(`/id(\d+)`)

// ByID targets an app by its numeric identifier.
func ByID(id int64) LookupTarget {
	return LookupTarget{kind: targetID, id: id}
}

// ByBundleID targets an app by its reverse-DNS bundle identifier.
func ByBundleID(bundleID string) LookupTarget {
	return LookupTarget{kind: targetBundleID, bundleID: bundleID}
}

// ByURL targets an app by its storefront page URL. The numeric identifier is
// extracted from the /idNNN path segment.
func ByURL(rawURL string) (LookupTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return LookupTarget{}, fmt.Errorf("parse store url: %w", err)
	}
	m := storeURLPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return LookupTarget{}, fmt.Errorf("store url %q has no /id segment", rawURL)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return LookupTarget{}, fmt.Errorf("store url id: %w", err)
	}
	return ByID(id), nil
}

// DetectTarget disambiguates free-form input: all digits is an identifier, a
// URL scheme or apple.com host is a store URL, anything with a dot is a
// bundle identifier.
func DetectTarget(input string) (LookupTarget, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return LookupTarget{}, fmt.Errorf("empty lookup target")
	}
	if allDigits(s) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return LookupTarget{}, fmt.Errorf("numeric target: %w", err)
		}
		return ByID(id), nil
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.Contains(s, "apple.com/") {
		if !strings.Contains(s, "://") {
			s = "https://" + s
		}
		return ByURL(s)
	}
	if strings.Contains(s, ".") {
		return ByBundleID(s), nil
	}
	return LookupTarget{}, fmt.Errorf("cannot interpret %q as app id, bundle id, or store url", input)
}

// Query returns the lookup parameter for this target.
func (t LookupTarget) Query() (key, value string, err error) {
	switch t.kind {
	case targetID:
		return "id", strconv.FormatInt(t.id, 10), nil
	case targetBundleID:
		return "bundleId", t.bundleID, nil
	default:
		return "", "", fmt.Errorf("invalid lookup target")
	}
}

// Lookup fetches the single app named by target. The second return is false
// when the endpoint knows no such app.
func (c *Client) Lookup(ctx context.Context, target LookupTarget) (App, bool, error) {
	key, value, err := target.Query()
	if err != nil {
		return App{}, false, err
	}

	q := url.Values{}
	q.Set(key, value)
	q.Set("country", c.cfg.Storefront)
	q.Set("lang", c.cfg.Language)
	q.Set("media", mediaSoftware)
	q.Set("entity", entitySoftware)

	body, err := c.get(ctx, c.cfg.LookupBase+"?"+q.Encode())
	if err != nil {
		return App{}, false, &TransientFetchError{Endpoint: "lookup", Err: err}
	}

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return App{}, false, &TransientFetchError{Endpoint: "lookup", Err: fmt.Errorf("decode lookup: %w", err)}
	}
	for _, r := range parsed.Results {
		if r.WrapperType != "" && r.WrapperType != "software" {
			continue
		}
		return r.toApp(), true, nil
	}
	return App{}, false, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
