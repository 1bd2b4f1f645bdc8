package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/util"
	"github.com/hallusearch/hallusearch/internal/worker"
)

const searchEndpoint = "https://www.googleapis.com/customsearch/v1"

// SearchRetriever finds evidence via Google Custom Search: query the
// statement, take the first result link, fetch the page, extract its
// visible text.
//
// Every failure mode (no API key, no results, robots disallow, fetch error)
// returns empty context rather than an error, per the retriever contract.
type SearchRetriever struct {
	apiKey     string
	engineID   string
	httpClient *http.Client
	fetcher    *PageFetcher
}

// NewSearchRetriever creates a new search-backed retriever
func NewSearchRetriever(cfg model.RetrievalConfig, httpCfg model.HTTPConfig) *SearchRetriever {
	proxyFunc := util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy)

	return &SearchRetriever{
		apiKey:   cfg.SearchAPIKey,
		engineID: cfg.SearchEngineID,
		httpClient: &http.Client{
			Timeout: httpCfg.Timeout,
			Transport: &http.Transport{
				Proxy: proxyFunc,
			},
		},
		fetcher: NewPageFetcher(
			httpCfg,
			cfg.MaxContextChars,
			util.NewRobotsChecker(util.NormalizeUserAgent(httpCfg.UserAgent), httpCfg.Timeout),
			worker.NewLimiter(cfg.RatePerSecond, cfg.RateBurst),
		),
	}
}

// Retrieve searches for the statement and returns the visible text of the
// first result, truncated to the configured context size
func (r *SearchRetriever) Retrieve(ctx context.Context, statement string) (string, error) {
	if r.apiKey == "" || r.engineID == "" {
		return "", nil
	}

	link, err := r.firstResultLink(ctx, statement)
	if err != nil || link == "" {
		return "", nil
	}

	return r.fetcher.VisibleText(ctx, link), nil
}

type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

// firstResultLink performs the search and returns the first result's URL
func (r *SearchRetriever) firstResultLink(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("key", r.apiKey)
	params.Set("cx", r.engineID)
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse search response: %w", err)
	}

	if len(parsed.Items) == 0 {
		return "", nil
	}
	return parsed.Items[0].Link, nil
}
