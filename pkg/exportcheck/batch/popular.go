package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultPopularURL lists the most downloaded packages on packagist.
const DefaultPopularURL = "https://packagist.org/explore/popular.json"

type popularResponse struct {
	Packages []struct {
		Name string `json:"name"`
	} `json:"packages"`
}

// FetchPopular returns up to limit package names from a packagist-style
// popular listing at rawURL.
func FetchPopular(ctx context.Context, client *http.Client, rawURL string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if client == nil {
		client = http.DefaultClient
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL %q: %w", rawURL, err)
	}
	q := u.Query()
	q.Set("per_page", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching popular packages: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetching popular packages: unexpected status %s", resp.Status)
	}

	var body popularResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding popular packages: %w", err)
	}

	names := make([]string, 0, len(body.Packages))
	for _, p := range body.Packages {
		if p.Name == "" {
			continue
		}
		names = append(names, p.Name)
		if len(names) == limit {
			break
		}
	}

	logger.Debug("fetched popular packages", "url", u.String(), "count", len(names))
	return names, nil
}
