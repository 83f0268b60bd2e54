package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KNICEX/watch-agent/internal/service/feed"
)

const (
	DefaultCryptoCompareURL = "https://min-api.cryptocompare.com"
	DefaultNewsAPIURL       = "https://newsapi.org"
)

type CryptoCompare struct {
	baseURL string
	limit   int
	cli     *http.Client
	timeout time.Duration
}

func NewCryptoCompare(baseURL string, limit int, cli *http.Client) feed.ReportFeed {
	if baseURL == "" {
		baseURL = DefaultCryptoCompareURL
	}
	if limit <= 0 {
		limit = 3
	}
	if cli == nil {
		cli = http.DefaultClient
	}
	return &CryptoCompare{
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		cli:     cli,
		timeout: 15 * time.Second,
	}
}

func (c *CryptoCompare) Name() string {
	return "cryptocompare"
}

func (c *CryptoCompare) Fetch(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	root, err := feed.GetJSON(ctx, c.cli, c.baseURL+"/data/v2/news/?lang=EN", nil)
	if err != nil {
		return nil, feed.Fail(c.Name(), err)
	}

	var lines []string
	for _, it := range root.Get("Data").Array() {
		if len(lines) == c.limit {
			break
		}
		body := strings.TrimSpace(it.Get("body").String())
		title := strings.TrimSpace(it.Get("title").String())
		if title == "" {
			title = feed.Truncate(body, 80)
		}
		if title == "" {
			continue
		}
		lines = append(lines, headline(title, feed.Truncate(body, 220)))
	}
	if len(lines) == 0 {
		return nil, feed.Fail(c.Name(), feed.ErrEmptySnapshot)
	}
	return lines, nil
}

// NewsAPI 经济类头条, 需要 api key
type NewsAPI struct {
	baseURL string
	apiKey  string
	limit   int
	cli     *http.Client
	timeout time.Duration
}

func NewNewsAPI(baseURL, apiKey string, limit int, cli *http.Client) feed.ReportFeed {
	if baseURL == "" {
		baseURL = DefaultNewsAPIURL
	}
	if limit <= 0 {
		limit = 2
	}
	if cli == nil {
		cli = http.DefaultClient
	}
	return &NewsAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		limit:   limit,
		cli:     cli,
		timeout: 15 * time.Second,
	}
}

func (n *NewsAPI) Name() string {
	return "newsapi"
}

func (n *NewsAPI) Fetch(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("country", "us")
	q.Set("category", "business")
	q.Set("pageSize", fmt.Sprint(n.limit))
	header := http.Header{}
	header.Set("X-Api-Key", n.apiKey)

	root, err := feed.GetJSON(ctx, n.cli, n.baseURL+"/v2/top-headlines?"+q.Encode(), header)
	if err != nil {
		return nil, feed.Fail(n.Name(), err)
	}

	var lines []string
	for _, it := range root.Get("articles").Array() {
		if len(lines) == n.limit {
			break
		}
		title := strings.TrimSpace(it.Get("title").String())
		if title == "" {
			continue
		}
		desc := it.Get("description").String()
		if desc == "" {
			desc = it.Get("summary").String()
		}
		lines = append(lines, headline(title, strings.TrimSpace(desc)))
	}
	if len(lines) == 0 {
		return nil, feed.Fail(n.Name(), feed.ErrEmptySnapshot)
	}
	return lines, nil
}

func headline(title, body string) string {
	if body == "" {
		return "▫️ " + title
	}
	return fmt.Sprintf("▫️ %s\n%s", title, body)
}
