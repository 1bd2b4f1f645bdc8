package retrieve

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/hallusearch/hallusearch/internal/model"
	"github.com/hallusearch/hallusearch/internal/util"
	"github.com/hallusearch/hallusearch/internal/worker"
)

// PageFetcher fetches a web page and extracts its visible text, honoring
// robots.txt and per-domain rate limits
type PageFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxChars   int
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
}

// NewPageFetcher creates a new page fetcher
func NewPageFetcher(httpCfg model.HTTPConfig, maxChars int, robots *util.RobotsChecker, limiter *worker.Limiter) *PageFetcher {
	proxyFunc := util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy)

	return &PageFetcher{
		httpClient: &http.Client{
			Timeout: httpCfg.Timeout,
			Transport: &http.Transport{
				Proxy: proxyFunc,
			},
		},
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
		maxChars:  maxChars,
		robots:    robots,
		limiter:   limiter,
	}
}

// VisibleText fetches rawURL and returns its visible text truncated to the
// configured size. Any failure returns "".
func (f *PageFetcher) VisibleText(ctx context.Context, rawURL string) string {
	allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil || !allowed {
		return ""
	}

	if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return ""
	}

	text := ExtractVisibleText(string(body))
	if f.maxChars > 0 && len(text) > f.maxChars {
		text = text[:f.maxChars]
	}
	return text
}

// ExtractVisibleText parses HTML and joins its text nodes with single
// spaces, skipping script, style, noscript and iframe content
func ExtractVisibleText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return buf.String()
}
