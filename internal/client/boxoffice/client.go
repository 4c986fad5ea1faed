// Package boxoffice talks to the opening-weekend gross provider.
package boxoffice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reelmarket/internal/models"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("boxoffice API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

// Opening is a film's opening-weekend result. Rank is the film's chart
// position for that weekend and doubles as the confidence signal: a
// zero rank means the provider has not finalized the numbers yet.
type Opening struct {
	Gross decimal.Decimal `json:"gross"`
	Rank  int             `json:"rank"`
}

// OpeningWeekend fetches the opening-weekend gross for a film by title
// and release date. 404 or an empty body maps to ErrDataUnavailable.
func (c *Client) OpeningWeekend(ctx context.Context, title string, releaseDate time.Time) (*Opening, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", models.ErrInvalidInput)
	}
	query := url.Values{}
	query.Set("title", title)
	query.Set("release_date", releaseDate.UTC().Format("2006-01-02"))
	body, err := c.doRequest(ctx, "/films/opening-weekend", query)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("film %q: %w", title, models.ErrDataUnavailable)
	}
	var out Opening
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode opening-weekend response: %w", err)
	}
	return &out, nil
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, models.ErrDataUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
