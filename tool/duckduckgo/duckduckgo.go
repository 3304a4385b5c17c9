// Package duckduckgo provides the duckduckgo_search tool, scraping the
// JavaScript free HTML endpoint of DuckDuckGo.
package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/hupe1980/agentcrew/core"
	"github.com/hupe1980/agentcrew/tool"
)

// ToolName is the function name exposed to models.
const ToolName = "duckduckgo_search"

// HTTPDoer is the subset of *http.Client the tool needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is a single search hit.
type Result struct {
	Title string `json:"title"`
	Href  string `json:"href"`
	Body  string `json:"body"`
}

// Options configure the search tool.
type Options struct {
	BaseURL    string
	MaxResults int
	Region     string
	UserAgent  string
	HTTPClient HTTPDoer
}

// Args are the arguments accepted by duckduckgo_search.
type Args struct {
	Query      string `json:"query" description:"The query to search for."`
	MaxResults *int   `json:"max_results" description:"The maximum number of results to return."`
}

// Searcher runs queries against DuckDuckGo.
type Searcher struct {
	opts Options
}

// NewSearcher creates a Searcher with defaults applied.
func NewSearcher(optFns ...func(o *Options)) *Searcher {
	opts := Options{
		BaseURL:    "https://html.duckduckgo.com/html/",
		MaxResults: 5,
		Region:     "wt-wt",
		UserAgent:  "Mozilla/5.0 (compatible; agentcrew/1.0)",
		HTTPClient: http.DefaultClient,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Searcher{opts: opts}
}

// New returns the duckduckgo_search tool.
func New(optFns ...func(o *Options)) tool.Tool {
	s := NewSearcher(optFns...)
	return tool.NewTypedFunctionTool(ToolName,
		"Use this function to search DuckDuckGo for a query. Returns a JSON list of results with title, href and body.",
		func(tc *core.ToolContext, a Args) (any, error) {
			limit := s.opts.MaxResults
			if a.MaxResults != nil && *a.MaxResults > 0 {
				limit = *a.MaxResults
			}
			return s.Search(tc.Context(), a.Query, limit)
		})
}

// Search returns up to limit results for query.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, tool.NewToolError(ToolName, "query must not be empty", tool.CodeValidation)
	}

	u, err := url.Parse(s.opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	if s.opts.Region != "" {
		q.Set("kl", s.opts.Region)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("duckduckgo returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return ParseResults(resp.Body, limit)
}

// ParseResults extracts results from a DuckDuckGo HTML result page.
func ParseResults(r io.Reader, limit int) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var results []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if limit > 0 && len(results) >= limit && !hasClass(n, "result__snippet") {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				if limit <= 0 || len(results) < limit {
					results = append(results, Result{
						Title: textContent(n),
						Href:  resolveHref(attr(n, "href")),
					})
				}
				return
			case hasClass(n, "result__snippet"):
				if len(results) > 0 && results[len(results)-1].Body == "" {
					results[len(results)-1].Body = textContent(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// resolveHref unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...).
func resolveHref(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
