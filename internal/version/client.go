package version

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/penwyp/brainframe-cli/internal/config"
	"github.com/penwyp/brainframe-cli/internal/errors"
	"github.com/penwyp/brainframe-cli/internal/logger"
	"go.uber.org/zap"
)

// maxErrorBody 错误响应体最多展示的字节数
const maxErrorBody = 4096

// Client 访问发布源：最新版本号与制品下载
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// ClientOption 配置选项
type ClientOption func(*Client)

// WithHTTPClient 设置底层 HTTP 客户端
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient 创建发布源客户端
func NewClient(opts ...ClientOption) *Client {
	c := &Client{http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrNop(c.logger)
	return c
}

// LatestURL is where origin publishes the newest version token.
func LatestURL(origin string) string {
	return strings.TrimRight(origin, "/") + "/releases/brainframe/latest"
}

// LatestTag 返回最新版本号原文（首行，去除首尾空白）
func (c *Client) LatestTag(ctx context.Context, origin string, creds *config.Credentials) (string, error) {
	body, err := c.Fetch(ctx, LatestURL(origin), creds)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	line, err := bufio.NewReader(body).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(errors.ErrTypeDependency, "failed to read the latest version", err)
	}
	tag := strings.TrimSpace(line)
	c.logger.Debug("Fetched latest version", zap.String("origin", origin), zap.String("tag", tag))
	return tag, nil
}

// Latest 获取并解析最新版本
// Malformed text is an error; it is never treated as "nothing newer".
func (c *Client) Latest(ctx context.Context, origin string, creds *config.Credentials) (Version, error) {
	tag, err := c.LatestTag(ctx, origin, creds)
	if err != nil {
		return Version{}, err
	}
	return Parse(tag)
}

// Fetch GETs url and returns the response body. Credentials, when present,
// are sent as basic auth. A non-2xx response is a dependency error
// carrying the status code and the start of the body.
func (c *Client) Fetch(ctx context.Context, url string, creds *config.Credentials) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTypeDependency, fmt.Sprintf("invalid URL %s", url), err)
	}
	if creds != nil {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTypeDependency, fmt.Sprintf("unable to reach %s", url), err).
			WithSuggestion("Check your network connection")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := fmt.Sprintf("GET %s returned %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
		e := errors.Wrap(errors.ErrTypeDependency, msg, errors.ErrOriginUnavailable)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			e = e.WithSuggestion("Check BRAINFRAME_STAGING_USERNAME and BRAINFRAME_STAGING_PASSWORD")
		}
		return nil, e
	}

	size := "unknown size"
	if resp.ContentLength >= 0 {
		size = humanize.Bytes(uint64(resp.ContentLength))
	}
	c.logger.Debug("Downloading", zap.String("url", url), zap.String("size", size))

	return resp.Body, nil
}
