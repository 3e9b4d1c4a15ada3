// Package selector はラベル選択リストの状態を管理する
//
// 各行は Unselected / Pending / Selected のいずれかの状態を持つ。
// クリックされた行はAPI呼び出しが完了するまで Pending になり、
// 成功したときだけ新しい状態へ、失敗したときは元の状態へ戻る。
package selector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/douhashi/better-labels/internal/api"
	"github.com/douhashi/better-labels/internal/label"
	"github.com/douhashi/better-labels/internal/logger"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRowPending is returned when a row is clicked while its previous
	// request has not finished.
	ErrRowPending = errors.New("label row has a request in flight")
	// ErrUnknownLabel is returned when a click names a label with no row.
	ErrUnknownLabel = errors.New("unknown label")
)

// Repository はラベルAPIの操作
type Repository interface {
	ListLabels(ctx context.Context) ([]label.Label, error)
	ListIssueLabels(ctx context.Context, issueKey string) ([]label.Label, error)
	AddLabel(ctx context.Context, issueKey string, l label.Label) error
	RemoveLabel(ctx context.Context, issueKey string, l label.Label) error
}

// IssueContext は対象のIssueを表す
type IssueContext interface {
	IssueKey() string
}

// ClickHandler はクリックされた行のラベルIDを受け取る
type ClickHandler func(ctx context.Context, id label.ID)

// Sink は行の描画先
// Render の中から View のメソッドを同期的に呼び出してはいけない
type Sink interface {
	Render(rows []Row)
	OnRowClick(handler ClickHandler)
	ShowError(err error)
}

// View はラベル選択リスト
type View struct {
	repo   Repository
	issue  IssueContext
	sink   Sink
	logger logger.Logger

	renderMu sync.Mutex

	mu      sync.Mutex
	rows    []Row
	index   map[label.ID]int
	applied label.Set
	// Issueのラベルが届く前に確定した状態。届いた一覧より優先する
	loaded    bool
	confirmed map[label.ID]State
}

// Option はViewの設定オプション
type Option func(*View)

// WithLogger はロガーを設定する
func WithLogger(l logger.Logger) Option {
	return func(v *View) {
		v.logger = l
	}
}

// New は新しいViewを作成し、sinkにクリックハンドラを登録する
func New(repo Repository, issue IssueContext, sink Sink, opts ...Option) *View {
	v := &View{
		repo:   repo,
		issue:  issue,
		sink:   sink,
		logger: logger.NewNop(),
		index:  make(map[label.ID]int),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.WithFields("issue", issue.IssueKey())

	sink.OnRowClick(v.handleClick)
	return v
}

// Open は全ラベルとIssueのラベルを並行して取得し、行を描画する
// 全ラベルが先に届いた場合は全行を Unselected で描画し、
// Issueのラベルが届いた時点で選択状態を反映し直す
func (v *View) Open(ctx context.Context) error {
	key := v.issue.IssueKey()

	v.mu.Lock()
	v.loaded = false
	v.confirmed = make(map[label.ID]State)
	v.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		labels, err := v.repo.ListLabels(ctx)
		if err != nil {
			return fmt.Errorf("failed to list labels: %w", err)
		}
		v.setLabels(labels)
		return nil
	})
	g.Go(func() error {
		applied, err := v.repo.ListIssueLabels(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to list labels of %s: %w", key, err)
		}
		v.setApplied(applied)
		return nil
	})

	if err := g.Wait(); err != nil {
		v.logger.Error("selector_open_failed", "error", err.Error())
		v.sink.ShowError(err)
		return err
	}

	v.logger.Debug("selector_opened", "labels", len(v.Rows()))
	return nil
}

// Click は行の選択状態を切り替える
// Selected の行は外し、Unselected の行は付与する。結果が返るまで行は Pending になる
func (v *View) Click(ctx context.Context, id label.ID) error {
	v.mu.Lock()
	i, ok := v.index[id]
	if !ok {
		v.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownLabel, id)
	}
	row := &v.rows[i]
	if row.State == Pending {
		v.mu.Unlock()
		return ErrRowPending
	}
	prior := row.State
	row.State = Pending
	l := row.Label
	v.mu.Unlock()

	v.render()

	key := v.issue.IssueKey()
	var (
		err    error
		target State
		verb   string
	)
	if prior == Selected {
		target, verb = Unselected, "remove"
		err = v.repo.RemoveLabel(ctx, key, l)
	} else {
		target, verb = Selected, "add"
		err = v.repo.AddLabel(ctx, key, l)
	}

	if err != nil && api.IsConflictError(err) {
		// サーバー側が既に目的の状態なのでそれに合わせる
		v.logger.Info("label_already_in_state", "label_id", id.String(), "action", verb)
		err = nil
	}

	if err != nil {
		v.settle(id, prior, false)
		v.render()

		err = fmt.Errorf("failed to %s label %s: %w", verb, l.DisplayText(), err)
		v.logger.Error("label_toggle_failed", "label_id", id.String(), "action", verb, "error", err.Error())
		v.sink.ShowError(err)
		return err
	}

	v.settle(id, target, true)
	v.render()
	v.logger.Info("label_toggled", "label_id", id.String(), "action", verb)
	return nil
}

// Rows は現在の行のスナップショットを返す
func (v *View) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot()
}

// Applied は Selected の行のラベルを表示順で返す
func (v *View) Applied() []label.Label {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []label.Label
	for _, row := range v.rows {
		if row.State == Selected {
			out = append(out, row.Label)
		}
	}
	return out
}

func (v *View) handleClick(ctx context.Context, id label.ID) {
	err := v.Click(ctx, id)
	switch {
	case errors.Is(err, ErrRowPending):
		v.logger.Debug("label_click_ignored", "label_id", id.String(), "reason", "pending")
	case errors.Is(err, ErrUnknownLabel):
		v.logger.Warn("label_click_ignored", "label_id", id.String(), "reason", "unknown")
	}
}

func (v *View) setLabels(labels []label.Label) {
	v.mu.Lock()
	v.rows = make([]Row, len(labels))
	v.index = make(map[label.ID]int, len(labels))
	for i, l := range labels {
		v.rows[i] = Row{Label: l, State: Unselected}
		if v.applied.Has(l.ID) {
			v.rows[i].State = Selected
		}
		v.index[l.ID] = i
	}
	v.mu.Unlock()

	v.render()
}

func (v *View) setApplied(labels []label.Label) {
	v.mu.Lock()
	v.applied = label.NewSet(labels)
	for id, state := range v.confirmed {
		if state == Selected {
			v.applied.Add(id)
		} else {
			v.applied.Remove(id)
		}
	}
	v.loaded = true
	v.confirmed = nil

	for i := range v.rows {
		row := &v.rows[i]
		if row.State == Pending {
			continue
		}
		row.State = Unselected
		if v.applied.Has(row.Label.ID) {
			row.State = Selected
		}
	}
	hasRows := len(v.rows) > 0
	v.mu.Unlock()

	if hasRows {
		v.render()
	}
}

// settle は Pending の行を state に確定する。confirmed なら適用済み集合も更新する
func (v *View) settle(id label.ID, state State, confirmed bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if confirmed {
		if v.applied == nil {
			v.applied = make(label.Set)
		}
		if state == Selected {
			v.applied.Add(id)
		} else {
			v.applied.Remove(id)
		}
		if !v.loaded && v.confirmed != nil {
			v.confirmed[id] = state
		}
	}

	if i, ok := v.index[id]; ok && v.rows[i].State == Pending {
		v.rows[i].State = state
	}
}

func (v *View) render() {
	v.renderMu.Lock()
	defer v.renderMu.Unlock()

	v.mu.Lock()
	rows := v.snapshot()
	v.mu.Unlock()

	v.sink.Render(rows)
}

func (v *View) snapshot() []Row {
	rows := make([]Row, len(v.rows))
	copy(rows, v.rows)
	return rows
}
