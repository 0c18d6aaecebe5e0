package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"rankwatch/internal/metrics"
)

const (
	// DefaultEndpoint is the Google Custom Search JSON API.
	DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"

	pageSize     = 10
	maxPages     = 10
	maxBodyBytes = 4 << 20
)

// SearchResultItem is one listing returned by the search backend.
// Link is nil when the backend omitted it; such items occupy a rank but never match.
type SearchResultItem struct {
	Link     *string `json:"link"`
	Title    string  `json:"title"`
	Snippet  string  `json:"snippet"`
	Promoted bool    `json:"promoted"`
}

// URL returns the item's link or "" when absent.
func (i SearchResultItem) URL() string {
	if i.Link == nil {
		return ""
	}
	return *i.Link
}

// SearchOutcome is the aggregated result of a paginated search.
// MatchIndex is the 0-based absolute index of the first organic match;
// PromotedMatchIndex is the index of the first matching ad on page one.
type SearchOutcome struct {
	Items              []SearchResultItem
	Promotions         []SearchResultItem
	MatchIndex         *int
	PromotedMatchIndex *int
	Pages              int
}

// searchResponse mirrors the backend payload. Optional fields are pointers
// or slices so absence is distinguishable from zero values.
type searchResponse struct {
	Items []struct {
		Link    *string         `json:"link"`
		Title   string          `json:"title"`
		Snippet string          `json:"snippet"`
		Pagemap json.RawMessage `json:"pagemap,omitempty"`
	} `json:"items"`
	Promotions []struct {
		Link  *string `json:"link"`
		Title string  `json:"title"`
	} `json:"promotions"`
	SearchInformation *struct {
		TotalResults string `json:"totalResults"`
	} `json:"searchInformation"`
	Error *backendErrorBody `json:"error"`
}

type backendErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SearchClient drives sequential, throttled page requests against the
// search backend for one query at a time.
type SearchClient struct {
	apiKey   string
	engineID string
	endpoint string
	client   *http.Client
	throttle Throttle
	logger   *slog.Logger
}

// SearchClientConfig configures a SearchClient. Zero values get defaults.
type SearchClientConfig struct {
	APIKey   string
	EngineID string
	Endpoint string
	Timeout  time.Duration
	Throttle Throttle
	Logger   *slog.Logger
}

// NewSearchClient creates a search client. The throttle is acquired before
// every page request; a nil throttle gets DefaultPageInterval.
func NewSearchClient(cfg SearchClientConfig) *SearchClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Throttle == nil {
		cfg.Throttle = NewThrottle(DefaultPageInterval)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SearchClient{
		apiKey:   cfg.APIKey,
		engineID: cfg.EngineID,
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		throttle: cfg.Throttle,
		logger:   cfg.Logger,
	}
}

// Configured returns true if both the API key and the engine id are set.
func (c *SearchClient) Configured() bool {
	return c.apiKey != "" && c.engineID != ""
}

// Search pages through at most 100 results for query and stops at the first
// organic listing belonging to targetDomain. Ads are only inspected on the
// first page. Any page failure aborts the whole search and discards what was
// accumulated.
func (c *SearchClient) Search(ctx context.Context, query, targetDomain string) (*SearchOutcome, error) {
	out := &SearchOutcome{}

	for page := 0; page < maxPages; page++ {
		offset := page*pageSize + 1

		// Waiting before every request (the first included) keeps at least one
		// interval between consecutive pages, also across keywords.
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, fmt.Errorf("search throttle: %w", err)
		}

		resp, err := c.fetchPage(ctx, query, offset)
		if err != nil {
			return nil, err
		}
		out.Pages++

		if page == 0 {
			for i, p := range resp.Promotions {
				out.Promotions = append(out.Promotions, SearchResultItem{Link: p.Link, Title: p.Title, Promoted: true})
				if out.PromotedMatchIndex == nil && p.Link != nil && Matches(*p.Link, targetDomain) {
					idx := i
					out.PromotedMatchIndex = &idx
				}
			}
		}

		if len(resp.Items) == 0 {
			break
		}

		for i, it := range resp.Items {
			out.Items = append(out.Items, SearchResultItem{
				Link:    it.Link,
				Title:   it.Title,
				Snippet: it.Snippet,
			})
			if out.MatchIndex == nil && it.Link != nil && Matches(*it.Link, targetDomain) {
				abs := offset - 1 + i
				out.MatchIndex = &abs
				c.logger.Debug("organic match",
					"query", query,
					"domain", targetDomain,
					"index", abs,
					"tier", MatchTierOf(*it.Link, targetDomain).String(),
				)
			}
		}
		if out.MatchIndex != nil {
			break
		}

		if len(resp.Items) < pageSize {
			break
		}
	}

	return out, nil
}

// fetchPage issues one request for the page starting at offset.
func (c *SearchClient) fetchPage(ctx context.Context, query string, offset int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", query)
	params.Set("start", strconv.Itoa(offset))
	params.Set("num", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &BackendError{Offset: offset, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, &BackendError{Offset: offset, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("transport_error").Inc()
		return nil, &BackendError{StatusCode: resp.StatusCode, Offset: offset, Message: "read response: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.SearchRequestsTotal.WithLabelValues("http_error").Inc()
		return nil, &BackendError{
			StatusCode: resp.StatusCode,
			Offset:     offset,
			Message:    backendMessage(body, resp.Status),
		}
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("malformed").Inc()
		return nil, &BackendError{StatusCode: resp.StatusCode, Offset: offset, Message: "malformed response: " + err.Error(), Err: err}
	}
	if parsed.Error != nil {
		metrics.SearchRequestsTotal.WithLabelValues("http_error").Inc()
		return nil, &BackendError{StatusCode: parsed.Error.Code, Offset: offset, Message: parsed.Error.Message}
	}

	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	return &parsed, nil
}

// backendMessage extracts error.message from a backend error body, falling
// back to the HTTP status line.
func backendMessage(body []byte, status string) string {
	var payload struct {
		Error *backendErrorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return status
}
