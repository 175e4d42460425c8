package seriesctx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultWikipediaBaseURL = "https://ja.wikipedia.org/api/rest_v1"

// PageSummary is the slice of the Wikipedia REST summary response we use.
type PageSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
}

// WikipediaClient fetches article summaries from the Japanese Wikipedia,
// the best free source for canonical Japanese spellings of character and
// place names.
type WikipediaClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewWikipediaClient(baseURL string) *WikipediaClient {
	if baseURL == "" {
		baseURL = defaultWikipediaBaseURL
	}
	return &WikipediaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Summary fetches the lead summary for title. A missing article comes
// back as an error; callers treat it as "no background available".
func (c *WikipediaClient) Summary(ctx context.Context, title string) (PageSummary, error) {
	endpoint := fmt.Sprintf("%s/page/summary/%s", c.baseURL, url.PathEscape(title))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PageSummary{}, fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PageSummary{}, fmt.Errorf("fetch summary for %q: %w", title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return PageSummary{}, fmt.Errorf("no article found for %q", title)
	}
	if resp.StatusCode != http.StatusOK {
		return PageSummary{}, fmt.Errorf("summary request for %q returned %s", title, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return PageSummary{}, fmt.Errorf("read summary response: %w", err)
	}

	var summary PageSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return PageSummary{}, fmt.Errorf("parse summary response: %w", err)
	}
	return summary, nil
}
