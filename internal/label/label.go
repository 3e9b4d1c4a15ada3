// Package label はラベルのデータモデルと並び順を定義する
package label

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID はラベルの識別子
// サーバーが数値で返したか文字列で返したかを保持し、送り返すときに同じ形式を使う
type ID struct {
	value   string
	numeric bool
}

// NumberID は数値のIDを作成する
func NumberID(n int64) ID {
	return ID{value: strconv.FormatInt(n, 10), numeric: true}
}

// StringID は文字列のIDを作成する
func StringID(s string) ID {
	return ID{value: s}
}

// String はIDの文字列表現を返す
func (id ID) String() string {
	return id.value
}

// IsZero はIDが未設定かどうかを返す
func (id ID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("label id is missing")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid label id %s: %w", data, err)
		}
		*id = StringID(s)
		return nil
	}

	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("invalid label id %s", data)
	}
	*id = ID{value: string(data), numeric: true}
	return nil
}

// Fields はラベルの付加情報
type Fields struct {
	Category    string `json:"category"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	FgColor     string `json:"fgcolor,omitempty"`
}

// Label はサーバーから取得したラベルのスナップショット
type Label struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Fields Fields `json:"fields"`
}

// DisplayText は表示名を返す。displayNameが無ければnameを使う
func (l Label) DisplayText() string {
	if l.Fields.DisplayName != "" {
		return l.Fields.DisplayName
	}
	return l.Name
}

// Background は背景色を返す
func (l Label) Background() string {
	if l.Fields.Color != "" {
		return l.Fields.Color
	}
	return DefaultBackground
}

// Foreground は文字色を返す。fgcolorが指定されていればそれを優先する
func (l Label) Foreground() string {
	if l.Fields.FgColor != "" {
		return l.Fields.FgColor
	}
	return ContrastColor(l.Background())
}

// Set はIssueに付与されているラベルIDの集合
type Set map[ID]struct{}

// NewSet はラベル一覧から集合を作成する
func NewSet(labels []Label) Set {
	s := make(Set, len(labels))
	for _, l := range labels {
		s[l.ID] = struct{}{}
	}
	return s
}

// Has はIDが集合に含まれるかを返す
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Add はIDを集合に加える
func (s Set) Add(id ID) {
	s[id] = struct{}{}
}

// Remove はIDを集合から取り除く
func (s Set) Remove(id ID) {
	delete(s, id)
}
