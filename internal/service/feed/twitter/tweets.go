package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/KNICEX/watch-agent/internal/service/feed"
	"github.com/samber/lo"
)

const DefaultBaseURL = "https://api.twitter.com"

var errUserNotFound = errors.New("user not found")

// Filter 判断推文是否值得告警
type Filter interface {
	Relevant(ctx context.Context, text string) bool
}

type Config struct {
	BaseURL    string
	Bearer     string
	Handles    []string
	MaxResults int
	Timeout    time.Duration
}

// TweetFeed 快照成员为推文 id, label 为 "@handle: 内容"
type TweetFeed struct {
	cfg    Config
	cli    *http.Client
	filter Filter

	mu      sync.Mutex
	userIds map[string]string
}

func NewTweetFeed(cfg Config, filter Filter, cli *http.Client) feed.SetFeed {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cli == nil {
		cli = http.DefaultClient
	}
	cfg.Handles = lo.Compact(lo.Map(cfg.Handles, func(item string, _ int) string {
		return strings.TrimPrefix(strings.TrimSpace(item), "@")
	}))
	return &TweetFeed{
		cfg:     cfg,
		cli:     cli,
		filter:  filter,
		userIds: make(map[string]string),
	}
}

func (f *TweetFeed) Name() string {
	return "twitter"
}

// Fetch 任一账号失败整体失败, 部分结果会让缺席的推文在下一轮被当作新增
func (f *TweetFeed) Fetch(ctx context.Context) (feed.SetSnapshot, error) {
	var ids []string
	labels := make(map[string]string)
	for _, handle := range f.cfg.Handles {
		tweets, err := f.recentTweets(ctx, handle)
		if err != nil {
			return feed.SetSnapshot{}, feed.Fail(f.Name(), fmt.Errorf("@%s: %w", handle, err))
		}
		for _, tw := range tweets {
			if f.filter != nil && !f.filter.Relevant(ctx, tw.text) {
				continue
			}
			ids = append(ids, tw.id)
			labels[tw.id] = fmt.Sprintf("@%s: %s", handle, feed.Truncate(tw.text, 300))
		}
	}
	return feed.NewSetSnapshot(ids, labels), nil
}

type tweet struct {
	id   string
	text string
}

func (f *TweetFeed) recentTweets(ctx context.Context, handle string) ([]tweet, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	uid, err := f.userId(ctx, handle)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("max_results", fmt.Sprint(f.cfg.MaxResults))
	q.Set("tweet.fields", "created_at,text")
	u := fmt.Sprintf("%s/2/users/%s/tweets?%s", f.baseURL(), url.PathEscape(uid), q.Encode())
	root, err := feed.GetJSON(ctx, f.cli, u, f.header())
	if err != nil {
		return nil, err
	}

	var tweets []tweet
	for _, it := range root.Get("data").Array() {
		id := it.Get("id").String()
		if id == "" {
			continue
		}
		tweets = append(tweets, tweet{id: id, text: it.Get("text").String()})
	}
	return tweets, nil
}

func (f *TweetFeed) userId(ctx context.Context, handle string) (string, error) {
	f.mu.Lock()
	uid, ok := f.userIds[handle]
	f.mu.Unlock()
	if ok {
		return uid, nil
	}

	u := fmt.Sprintf("%s/2/users/by/username/%s", f.baseURL(), url.PathEscape(handle))
	root, err := feed.GetJSON(ctx, f.cli, u, f.header())
	if err != nil {
		return "", err
	}
	uid = root.Get("data.id").String()
	if uid == "" {
		return "", errUserNotFound
	}

	f.mu.Lock()
	f.userIds[handle] = uid
	f.mu.Unlock()
	return uid, nil
}

func (f *TweetFeed) baseURL() string {
	return strings.TrimRight(f.cfg.BaseURL, "/")
}

func (f *TweetFeed) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+f.cfg.Bearer)
	return h
}
