// Package api はラベル管理APIのクライアント
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/douhashi/better-labels/internal/label"
	"github.com/douhashi/better-labels/internal/logger"
)

// DefaultTimeout は1回のAPI呼び出しに掛けてよい時間
const DefaultTimeout = 10 * time.Second

var (
	// ErrEmptyIssueKey is returned when an issue operation gets an empty key.
	ErrEmptyIssueKey = errors.New("issue key is required")
	// ErrInvalidIssueKey is returned for keys with "." or ".." segments.
	ErrInvalidIssueKey = errors.New("invalid issue key")
	// ErrEmptyLabelID is returned when add/remove gets a label without id.
	ErrEmptyLabelID = errors.New("label id is required")
	// ErrEmptyQuery is returned when a search gets an empty query.
	ErrEmptyQuery = errors.New("search query is required")
)

// Client はラベル管理APIのクライアント
// 返すラベル一覧は常にorderingで並べ替え済み
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	ordering   *label.Ordering
	logger     logger.Logger
}

// Option はClientの設定オプション
type Option func(*Client)

// WithHTTPClient は使用するhttp.Clientを設定する
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout は1回の呼び出しのタイムアウトを設定する。0以下なら無効
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithOrdering はラベルの並び順を設定する
func WithOrdering(o *label.Ordering) Option {
	return func(c *Client) {
		c.ordering = o
	}
}

// WithLogger はHTTP通信をログ出力するロガーを設定する
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient は新しいクライアントを作成する
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("API base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		ordering:   label.DefaultOrdering(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger != nil {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc := *c.httpClient
		hc.Transport = &loggingRoundTripper{base: base, logger: c.logger}
		c.httpClient = &hc
	}

	return c, nil
}

// ListLabels はAPIが知っている全てのラベルを取得する
func (c *Client) ListLabels(ctx context.Context) ([]label.Label, error) {
	var labels []label.Label
	if err := c.do(ctx, "list labels", http.MethodGet, c.endpoint(nil, "labels"), nil, &labels); err != nil {
		// ラベルが1件も無いとサーバーは404 {"error":"Not found"}を返す
		if !isEmptyTable(err) {
			return nil, err
		}
	}
	if labels == nil {
		labels = []label.Label{}
	}
	c.ordering.Sort(labels)
	return labels, nil
}

// ListIssueLabels はIssueに付与されているラベルを取得する
func (c *Client) ListIssueLabels(ctx context.Context, issueKey string) ([]label.Label, error) {
	segments, err := issueSegments(issueKey)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Labels []label.Label `json:"labels"`
	}
	if err := c.do(ctx, "list issue labels", http.MethodGet, c.endpoint(segments, "labels"), nil, &payload); err != nil {
		return nil, err
	}
	if payload.Labels == nil {
		payload.Labels = []label.Label{}
	}
	c.ordering.Sort(payload.Labels)
	return payload.Labels, nil
}

// AddLabel はIssueにラベルを付与する
func (c *Client) AddLabel(ctx context.Context, issueKey string, l label.Label) error {
	segments, err := issueSegments(issueKey)
	if err != nil {
		return err
	}
	if l.ID.IsZero() {
		return ErrEmptyLabelID
	}

	body, err := json.Marshal([]label.ID{l.ID})
	if err != nil {
		return fmt.Errorf("failed to encode label id: %w", err)
	}
	return c.do(ctx, "add label", http.MethodPost, c.endpoint(segments, "labels"), body, nil)
}

// RemoveLabel はIssueからラベルを外す
func (c *Client) RemoveLabel(ctx context.Context, issueKey string, l label.Label) error {
	segments, err := issueSegments(issueKey)
	if err != nil {
		return err
	}
	if l.ID.IsZero() {
		return ErrEmptyLabelID
	}

	return c.do(ctx, "remove label", http.MethodDelete, c.endpoint(segments, "labels", l.ID.String()), nil, nil)
}

// PatchLabels はaddのラベルを付与してからremoveのラベルを外し、
// 更新後にIssueに付与されているラベルを返す
// ラベル一覧に無いIDはサーバー側で無視される
func (c *Client) PatchLabels(ctx context.Context, issueKey string, add, remove []label.Label) ([]label.Label, error) {
	segments, err := issueSegments(issueKey)
	if err != nil {
		return nil, err
	}

	patch := struct {
		Add    []label.ID `json:"addLabelIds"`
		Remove []label.ID `json:"removeLabelIds"`
	}{
		Add:    make([]label.ID, 0, len(add)),
		Remove: make([]label.ID, 0, len(remove)),
	}
	for _, l := range add {
		if l.ID.IsZero() {
			return nil, ErrEmptyLabelID
		}
		patch.Add = append(patch.Add, l.ID)
	}
	for _, l := range remove {
		if l.ID.IsZero() {
			return nil, ErrEmptyLabelID
		}
		patch.Remove = append(patch.Remove, l.ID)
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode label patch: %w", err)
	}

	var payload struct {
		Labels []label.Label `json:"labels"`
	}
	if err := c.do(ctx, "patch labels", http.MethodPatch, c.endpoint(segments, "labels"), body, &payload); err != nil {
		return nil, err
	}
	if payload.Labels == nil {
		payload.Labels = []label.Label{}
	}
	c.ordering.Sort(payload.Labels)
	return payload.Labels, nil
}

// SearchIssues はqueryに一致するラベルが付いたIssueを開く検索URLを返す
// 一致するものが無いと空文字列を返す
func (c *Client) SearchIssues(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", ErrEmptyQuery
	}

	endpoint := c.endpoint(nil, "search") + "?" + url.Values{"query": {query}}.Encode()
	var raw json.RawMessage
	if err := c.do(ctx, "search", http.MethodGet, endpoint, nil, &raw); err != nil {
		return "", err
	}

	// Issueが1件も登録されていなければ空配列が返る
	var found string
	if err := json.Unmarshal(raw, &found); err != nil {
		var none []json.RawMessage
		if json.Unmarshal(raw, &none) == nil && len(none) == 0 {
			return "", nil
		}
		return "", &APIError{Kind: KindParse, Op: "search", StatusCode: http.StatusOK, Message: "malformed response body", Err: err}
	}
	return found, nil
}

func isEmptyTable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != KindNetwork || apiErr.StatusCode != http.StatusNotFound {
		return false
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(apiErr.Message), &body) != nil {
		return false
	}
	return body.Error == "Not found"
}

// issueSegments はIssueキー（ページのパス）をパス要素に分解する
func issueSegments(issueKey string) ([]string, error) {
	var segments []string
	for _, part := range strings.Split(issueKey, "/") {
		switch part {
		case "":
		case ".", "..":
			return nil, fmt.Errorf("%w: %q", ErrInvalidIssueKey, issueKey)
		default:
			segments = append(segments, part)
		}
	}
	if len(segments) == 0 {
		return nil, ErrEmptyIssueKey
	}
	return segments, nil
}

func (c *Client) endpoint(prefix []string, rest ...string) string {
	parts := make([]string, 0, len(prefix)+len(rest))
	for _, s := range prefix {
		parts = append(parts, url.PathEscape(s))
	}
	for _, s := range rest {
		parts = append(parts, url.PathEscape(s))
	}
	return c.baseURL + "/" + strings.Join(parts, "/")
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: KindNetwork, Op: op, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return &APIError{Kind: KindConflict, Op: op, StatusCode: resp.StatusCode, Message: statusMessage(resp, data)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &APIError{Kind: KindNetwork, Op: op, StatusCode: resp.StatusCode, Message: statusMessage(resp, data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Kind: KindParse, Op: op, StatusCode: resp.StatusCode, Message: "malformed response body", Err: err}
	}
	return nil
}

func statusMessage(resp *http.Response, body []byte) string {
	if msg := strings.TrimSpace(preview(body)); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}
