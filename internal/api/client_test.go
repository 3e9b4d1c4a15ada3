package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/douhashi/better-labels/internal/label"
	"github.com/douhashi/better-labels/internal/testutil/fakeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issueKey = "/owner/repo/issues/12"

var (
	bug = label.Label{ID: label.NumberID(1), Name: "bug", Fields: label.Fields{Category: "category"}}
	p0  = label.Label{ID: label.NumberID(2), Name: "p0", Fields: label.Fields{Category: "impact"}}
	ux  = label.Label{ID: label.StringID("ux"), Name: "ux", Fields: label.Fields{Category: "functional_area"}}
)

func newTestClient(t *testing.T, srv *fakeapi.Server, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func ids(labels []label.Label) []label.ID {
	out := make([]label.ID, len(labels))
	for i, l := range labels {
		out[i] = l.ID
	}
	return out
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "正常系: https", baseURL: "https://example.com/dev"},
		{name: "正常系: 末尾のスラッシュ", baseURL: "http://localhost:8080/"},
		{name: "異常系: 空", baseURL: "", wantErr: true},
		{name: "異常系: スキームなし", baseURL: "example.com/dev", wantErr: true},
		{name: "異常系: 不正なURL", baseURL: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestClient_ListLabels(t *testing.T) {
	t.Run("正常系: カテゴリの優先順で並べ替えて返す", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug, ux, p0})
		c := newTestClient(t, srv)

		labels, err := c.ListLabels(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []label.ID{p0.ID, bug.ID, ux.ID}, ids(labels))
	})

	t.Run("正常系: 設定した並び順を使う", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug, ux, p0})
		c := newTestClient(t, srv, WithOrdering(label.NewOrdering([]string{"functional_area"})))

		labels, err := c.ListLabels(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []label.ID{ux.ID, bug.ID, p0.ID}, ids(labels))
	})

	t.Run("正常系: ラベルが無いときの404 Not foundは空配列", func(t *testing.T) {
		srv := fakeapi.New(t, nil)
		c := newTestClient(t, srv)

		labels, err := c.ListLabels(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, labels)
		assert.Empty(t, labels)
	})

	t.Run("正常系: 空配列", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		require.NoError(t, err)

		labels, err := c.ListLabels(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, labels)
		assert.Empty(t, labels)
	})

	t.Run("異常系: 本文の無い404はNetworkError", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		c, err := NewClient(srv.URL)
		require.NoError(t, err)

		_, err = c.ListLabels(context.Background())
		require.Error(t, err)
		assert.True(t, IsNetworkError(err))
	})

	t.Run("異常系: サーバーエラーはNetworkError", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		srv.Fail(http.MethodGet, http.StatusBadGateway)
		c := newTestClient(t, srv)

		_, err := c.ListLabels(context.Background())
		require.Error(t, err)
		assert.True(t, IsNetworkError(err))

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	})

	t.Run("異常系: 壊れたJSONはParseError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"labels": [`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		require.NoError(t, err)

		_, err = c.ListLabels(context.Background())
		require.Error(t, err)
		assert.True(t, IsParseError(err))
		assert.False(t, IsNetworkError(err))
	})

	t.Run("異常系: 接続できなければNetworkError", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := NewClient(url)
		require.NoError(t, err)

		_, err = c.ListLabels(context.Background())
		require.Error(t, err)
		assert.True(t, IsNetworkError(err))
	})
}

func TestClient_ListIssueLabels(t *testing.T) {
	t.Run("正常系: Issueのラベルを並べ替えて返す", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug, p0, ux})
		srv.SetIssueLabels(issueKey, ux.ID, bug.ID, p0.ID)
		c := newTestClient(t, srv)

		labels, err := c.ListIssueLabels(context.Background(), issueKey)
		require.NoError(t, err)

		assert.Equal(t, []label.ID{p0.ID, bug.ID, ux.ID}, ids(labels))
	})

	t.Run("正常系: labelsがnullでも空で返す", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/owner/repo/issues/12/labels", r.URL.Path)
			w.Write([]byte(`{"labels": null}`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		require.NoError(t, err)

		labels, err := c.ListIssueLabels(context.Background(), issueKey)
		require.NoError(t, err)
		assert.Empty(t, labels)
	})

	t.Run("正常系: ベースURLのパスを保持する", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/dev/owner/repo/issues/12/labels", r.URL.Path)
			w.Write([]byte(`{"labels": []}`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL + "/dev/")
		require.NoError(t, err)

		_, err = c.ListIssueLabels(context.Background(), "owner/repo/issues/12/")
		require.NoError(t, err)
	})

	t.Run("異常系: 空のIssueキー", func(t *testing.T) {
		srv := fakeapi.New(t, nil)
		c := newTestClient(t, srv)

		_, err := c.ListIssueLabels(context.Background(), "/")
		assert.ErrorIs(t, err, ErrEmptyIssueKey)
		assert.Empty(t, srv.Requests())
	})

	t.Run("異常系: ドットを含むIssueキーは送信しない", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		c := newTestClient(t, srv)

		_, err := c.ListIssueLabels(context.Background(), "../..")
		assert.ErrorIs(t, err, ErrInvalidIssueKey)
		assert.ErrorIs(t, c.AddLabel(context.Background(), "/owner/./issues/1", bug), ErrInvalidIssueKey)
		assert.ErrorIs(t, c.RemoveLabel(context.Background(), "/owner/repo/issues/1/..", bug), ErrInvalidIssueKey)
		assert.Empty(t, srv.Requests())
	})
}

func TestClient_AddLabel(t *testing.T) {
	t.Run("正常系: ラベルIDの配列をPOSTする", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug, p0, ux})
		c := newTestClient(t, srv)

		require.NoError(t, c.AddLabel(context.Background(), issueKey, bug))
		require.NoError(t, c.AddLabel(context.Background(), issueKey, ux))

		reqs := srv.Requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, http.MethodPost, reqs[0].Method)
		assert.Equal(t, "/owner/repo/issues/12/labels", reqs[0].Path)
		assert.JSONEq(t, `[1]`, reqs[0].Body)
		assert.JSONEq(t, `["ux"]`, reqs[1].Body)
		assert.Equal(t, []label.ID{bug.ID, ux.ID}, srv.IssueLabelIDs(issueKey))
	})

	t.Run("正常系: 同じラベルを2回付与しても重複しない", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		c := newTestClient(t, srv)

		require.NoError(t, c.AddLabel(context.Background(), issueKey, bug))
		require.NoError(t, c.AddLabel(context.Background(), issueKey, bug))

		assert.Equal(t, []label.ID{bug.ID}, srv.IssueLabelIDs(issueKey))
	})

	t.Run("異常系: 409はConflictError", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		srv.SetIssueLabels(issueKey, bug.ID)
		srv.RejectDuplicates(true)
		c := newTestClient(t, srv)

		err := c.AddLabel(context.Background(), issueKey, bug)
		require.Error(t, err)
		assert.True(t, IsConflictError(err))
	})

	t.Run("異常系: IDのないラベル", func(t *testing.T) {
		srv := fakeapi.New(t, nil)
		c := newTestClient(t, srv)

		err := c.AddLabel(context.Background(), issueKey, label.Label{Name: "bug"})
		assert.ErrorIs(t, err, ErrEmptyLabelID)
	})
}

func TestClient_RemoveLabel(t *testing.T) {
	t.Run("正常系: ラベルIDを指定してDELETEする", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug, p0})
		srv.SetIssueLabels(issueKey, bug.ID, p0.ID)
		c := newTestClient(t, srv)

		require.NoError(t, c.RemoveLabel(context.Background(), issueKey, p0))

		reqs := srv.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodDelete, reqs[0].Method)
		assert.Equal(t, "/owner/repo/issues/12/labels/2", reqs[0].Path)
		assert.Equal(t, []label.ID{bug.ID}, srv.IssueLabelIDs(issueKey))
	})

	t.Run("異常系: サーバーエラーはNetworkError", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		srv.SetIssueLabels(issueKey, bug.ID)
		srv.Fail(http.MethodDelete, http.StatusInternalServerError)
		c := newTestClient(t, srv)

		err := c.RemoveLabel(context.Background(), issueKey, bug)
		require.Error(t, err)
		assert.True(t, IsNetworkError(err))
		assert.Equal(t, []label.ID{bug.ID}, srv.IssueLabelIDs(issueKey))
	})
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	err = c.AddLabel(context.Background(), issueKey, bug)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_RoundTrip(t *testing.T) {
	srv := fakeapi.New(t, []label.Label{bug, p0, ux})
	c := newTestClient(t, srv)
	ctx := context.Background()

	all, err := c.ListLabels(ctx)
	require.NoError(t, err)
	known := label.NewSet(all)

	require.NoError(t, c.AddLabel(ctx, issueKey, ux))
	applied, err := c.ListIssueLabels(ctx, issueKey)
	require.NoError(t, err)
	assert.Contains(t, ids(applied), ux.ID)
	for _, l := range applied {
		assert.True(t, known.Has(l.ID), "issue label %s is not in the label list", l.ID)
	}

	require.NoError(t, c.RemoveLabel(ctx, issueKey, ux))
	applied, err = c.ListIssueLabels(ctx, issueKey)
	require.NoError(t, err)
	assert.NotContains(t, ids(applied), ux.ID)
}

func TestClient_PatchLabels(t *testing.T) {
	t.Run("正常系: 付与と削除をまとめて送る", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug, p0, ux})
		srv.SetIssueLabels(issueKey, p0.ID)
		c := newTestClient(t, srv)

		labels, err := c.PatchLabels(context.Background(), issueKey, []label.Label{ux, bug}, []label.Label{p0})
		require.NoError(t, err)

		assert.Equal(t, []label.ID{bug.ID, ux.ID}, ids(labels))
		assert.Equal(t, []label.ID{ux.ID, bug.ID}, srv.IssueLabelIDs(issueKey))

		reqs := srv.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, http.MethodPatch, reqs[0].Method)
		assert.JSONEq(t, `{"addLabelIds":["ux",1],"removeLabelIds":[2]}`, reqs[0].Body)
	})

	t.Run("正常系: 空でも配列を送る", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		c := newTestClient(t, srv)

		labels, err := c.PatchLabels(context.Background(), issueKey, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, labels)
		assert.JSONEq(t, `{"addLabelIds":[],"removeLabelIds":[]}`, srv.Requests()[0].Body)
	})

	t.Run("正常系: 一覧に無いIDはサーバーが無視する", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		c := newTestClient(t, srv)

		ghost := label.Label{ID: label.NumberID(404), Name: "ghost"}
		labels, err := c.PatchLabels(context.Background(), issueKey, []label.Label{ghost, bug, bug}, nil)
		require.NoError(t, err)
		assert.Equal(t, []label.ID{bug.ID}, ids(labels))
		assert.Equal(t, []label.ID{bug.ID}, srv.IssueLabelIDs(issueKey))
	})

	t.Run("異常系: IDの無いラベル", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		c := newTestClient(t, srv)

		_, err := c.PatchLabels(context.Background(), issueKey, []label.Label{{Name: "x"}}, nil)
		assert.ErrorIs(t, err, ErrEmptyLabelID)
		assert.Empty(t, srv.Requests())
	})
}

func TestClient_SearchIssues(t *testing.T) {
	t.Run("正常系: ラベル名に一致するIssueの検索URL", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug, p0})
		srv.SetIssueLabels("/owner/repo/issues/3", bug.ID)
		srv.SetIssueLabels("/owner/repo/issues/7", p0.ID)
		srv.SetIssueLabels("/owner/repo/issues/12", bug.ID, p0.ID)
		c := newTestClient(t, srv)

		got, err := c.SearchIssues(context.Background(), "bu")
		require.NoError(t, err)
		assert.Equal(t, fakeapi.SearchURL+"12+3", got)

		reqs := srv.Requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "/search", reqs[0].Path)
	})

	t.Run("正常系: fieldsのキーにも一致する", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug, p0})
		srv.SetIssueLabels("/owner/repo/issues/7", p0.ID)
		c := newTestClient(t, srv)

		got, err := c.SearchIssues(context.Background(), "category")
		require.NoError(t, err)
		assert.Equal(t, fakeapi.SearchURL+"7", got)
	})

	t.Run("正常系: Issueが無ければ空文字列", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		c := newTestClient(t, srv)

		got, err := c.SearchIssues(context.Background(), "bug")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("異常系: 空のクエリ", func(t *testing.T) {
		srv := fakeapi.New(t, []label.Label{bug})
		c := newTestClient(t, srv)

		_, err := c.SearchIssues(context.Background(), "")
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("異常系: 文字列でも空配列でもなければParseError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"url": 1}`))
		}))
		defer srv.Close()

		c, err := NewClient(srv.URL)
		require.NoError(t, err)

		_, err = c.SearchIssues(context.Background(), "bug")
		assert.True(t, IsParseError(err))
	})
}
