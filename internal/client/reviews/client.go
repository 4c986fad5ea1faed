// Package reviews talks to the aggregate critic-score provider. The
// contract is score-plus-confidence: a response always carries the
// review count so callers can decide whether the score is trustworthy.
package reviews

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

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
	return fmt.Sprintf("reviews API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

// Score is a film's aggregate critic score with its confidence signal.
type Score struct {
	Value       decimal.Decimal `json:"value"`
	ReviewCount int             `json:"review_count"`
}

// FilmScore fetches the aggregate score for a film. A 404 or an empty
// body maps to ErrDataUnavailable; the caller routes that to manual
// resolution rather than treating it as a failure.
func (c *Client) FilmScore(ctx context.Context, filmID string) (*Score, error) {
	if filmID == "" {
		return nil, fmt.Errorf("film id is required: %w", models.ErrInvalidInput)
	}
	body, err := c.doRequest(ctx, "/films/"+url.PathEscape(filmID)+"/score", nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("film %s: %w", filmID, models.ErrDataUnavailable)
	}
	var out Score
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode score response: %w", err)
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
