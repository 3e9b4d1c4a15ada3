// Package issue はラベル付けの対象になるIssueを識別する
package issue

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrNotIssuePage is returned for URLs that are not a GitHub issue page.
	ErrNotIssuePage = errors.New("not a GitHub issue page")
	// ErrInvalidKey is returned for paths containing "." or ".." segments.
	ErrInvalidKey = errors.New("invalid issue key")
)

var issuePageRegex = regexp.MustCompile(`^https://github\.com/[^/]+/[^/]+/issues/[0-9]+$`)

// Key はIssueキー。Issueページのパス（例: /owner/repo/issues/12）
type Key string

// IssueKey implements selector.IssueContext.
func (k Key) IssueKey() string {
	return string(k)
}

// FromURL はGitHubのIssueページのURLからキーを作る
func FromURL(raw string) (Key, error) {
	raw = strings.TrimSpace(raw)
	if !issuePageRegex.MatchString(raw) {
		return "", fmt.Errorf("%w: %s", ErrNotIssuePage, raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid issue URL %q: %w", raw, err)
	}
	return Key(u.Path), nil
}

// Parse はURLまたはパスからキーを作る
// パスの場合は先頭のスラッシュを補う
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return FromURL(s)
	}

	trimmed := strings.Trim(s, "/")
	if trimmed == "" {
		return "", errors.New("issue key is required")
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %s", ErrInvalidKey, s)
		}
	}
	return Key("/" + trimmed), nil
}
