// Package render はラベル選択リストを端末に描画する
package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/douhashi/better-labels/internal/label"
	"github.com/douhashi/better-labels/internal/selector"
	"github.com/sahilm/fuzzy"
)

const title = "Apply better labels to this issue"

// Terminal は selector.Sink の端末実装
//
// Run に渡した入力から1行ずつコマンドを読む:
//
//	<番号>   その行のラベルを付与/解除する
//	/<文字>  ラベルを絞り込む（"/" だけで解除）
//	q        終了する
type Terminal struct {
	out      io.Writer
	renderer *lipgloss.Renderer

	mu      sync.Mutex
	rows    []selector.Row
	query   string
	handler selector.ClickHandler
}

// NewTerminal は out に描画するTerminalを作成する
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
	}
}

// Render implements selector.Sink.
func (t *Terminal) Render(rows []selector.Row) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rows = rows
	t.draw()
}

// OnRowClick implements selector.Sink.
func (t *Terminal) OnRowClick(handler selector.ClickHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

// ShowError implements selector.Sink.
func (t *Terminal) ShowError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	style := t.renderer.NewStyle().Foreground(lipgloss.Color("#d73a4a")).Bold(true)
	fmt.Fprintln(t.out, style.Render("error: "+err.Error()))
}

// PrintLabels はIssueに付与されたラベルをチップとして1行ずつ出力する
func (t *Terminal) PrintLabels(labels []label.Label) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, l := range labels {
		fmt.Fprintln(t.out, t.chip(l))
	}
}

// Run は in からコマンドを読み、入力が尽きるか q で終了する
func (t *Terminal) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			t.redraw()
		case line == "q" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/"):
			t.filter(strings.TrimSpace(strings.TrimPrefix(line, "/")))
		default:
			t.click(ctx, line)
		}
	}
	return scanner.Err()
}

func (t *Terminal) click(ctx context.Context, input string) {
	t.mu.Lock()
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(t.rows) {
		fmt.Fprintf(t.out, "unknown row %q\n", input)
		t.mu.Unlock()
		return
	}
	id := t.rows[n-1].Label.ID
	handler := t.handler
	t.mu.Unlock()

	if handler != nil {
		handler(ctx, id)
	}
}

func (t *Terminal) filter(query string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.query = query
	t.draw()
}

func (t *Terminal) redraw() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.draw()
}

// visible は絞り込み後に表示する行のインデックスを元の並び順で返す
func (t *Terminal) visible() []int {
	indexes := make([]int, 0, len(t.rows))
	if t.query == "" {
		for i := range t.rows {
			indexes = append(indexes, i)
		}
		return indexes
	}

	targets := make([]string, len(t.rows))
	for i, row := range t.rows {
		targets[i] = row.Label.DisplayText() + " " + row.Label.Name
	}
	for _, match := range fuzzy.Find(t.query, targets) {
		indexes = append(indexes, match.Index)
	}
	slices.Sort(indexes)
	return indexes
}

func (t *Terminal) draw() {
	header := t.renderer.NewStyle().Bold(true)
	faint := t.renderer.NewStyle().Faint(true)

	fmt.Fprintln(t.out, header.Render(title))
	if t.query != "" {
		fmt.Fprintln(t.out, faint.Render("filter: "+t.query))
	}

	visible := t.visible()
	if len(visible) == 0 {
		fmt.Fprintln(t.out, faint.Render("  no labels"))
		return
	}

	for _, i := range visible {
		row := t.rows[i]
		line := fmt.Sprintf("%3d %s %s", i+1, marker(row.State), t.chip(row.Label))
		if d := row.Label.Fields.Description; d != "" {
			line += " " + faint.Render(d)
		}
		fmt.Fprintln(t.out, line)
	}
}

func (t *Terminal) chip(l label.Label) string {
	return t.renderer.NewStyle().
		Background(lipgloss.Color(cssColor(l.Background()))).
		Foreground(lipgloss.Color(cssColor(l.Foreground()))).
		Padding(0, 1).
		Render(l.DisplayText())
}

func marker(s selector.State) string {
	switch s {
	case selector.Selected:
		return "[x]"
	case selector.Pending:
		return "[~]"
	default:
		return "[ ]"
	}
}

// cssColor はlipglossが解釈できる形に色を揃える
func cssColor(c string) string {
	switch {
	case c == label.DefaultBackground:
		return "#d3d3d3"
	case len(c) == 6 && !strings.HasPrefix(c, "#"):
		return "#" + c
	default:
		return c
	}
}
