package selector

import "github.com/douhashi/better-labels/internal/label"

// State は行の選択状態
type State int

const (
	// Unselected はIssueに付与されていない
	Unselected State = iota
	// Pending は付与/解除のリクエストが完了していない
	Pending
	// Selected はIssueに付与されている
	Selected
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Unselected:
		return "unselected"
	case Pending:
		return "pending"
	case Selected:
		return "selected"
	default:
		return "unknown"
	}
}

// Row は選択リストの1行
type Row struct {
	Label label.Label
	State State
}
