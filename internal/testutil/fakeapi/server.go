// Package fakeapi serves an in-memory label API for tests.
package fakeapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/douhashi/better-labels/internal/label"
)

// SearchURL prefixes the issue numbers returned by GET /search.
const SearchURL = "https://github.com/issues?q=is%3Aissue+is%3Aopen+"

type issuePayload struct {
	Path   string        `json:"path"`
	Labels []label.Label `json:"labels"`
}

// Request is a request recorded by the server.
type Request struct {
	Method string
	Path   string
	Body   string
}

// Server is a label API backed by memory.
//
// It answers like the production service: GET /labels on an empty table is
// 404 {"error":"Not found"}, unknown ids in POST and PATCH are dropped,
// duplicates collapse, and nothing answers 409 unless RejectDuplicates is on.
// Issue label lists are returned in insertion order, unsorted.
type Server struct {
	*httptest.Server

	mu               sync.Mutex
	labels           []label.Label
	issues           map[string][]label.ID
	failures         map[string]int
	rejectDuplicates bool
	requests         []Request
}

// New starts a server holding labels. It is closed when the test ends.
func New(t testing.TB, labels []label.Label) *Server {
	t.Helper()

	s := &Server{
		labels:   slices.Clone(labels),
		issues:   make(map[string][]label.ID),
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// SetIssueLabels replaces the labels applied to an issue.
// Unlike POST, ids are stored as given.
func (s *Server) SetIssueLabels(issueKey string, ids ...label.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issues[normalize(issueKey)] = slices.Clone(ids)
}

// IssueLabelIDs returns the ids applied to an issue.
func (s *Server) IssueLabelIDs(issueKey string) []label.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.issues[normalize(issueKey)])
}

// Fail makes every following request with method answer status.
// A zero status clears the failure.
func (s *Server) Fail(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, method)
		return
	}
	s.failures[method] = status
}

// RejectDuplicates makes adding an applied label, or removing one that is
// not applied, answer 409 Conflict. The production service never does this.
func (s *Server) RejectDuplicates(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectDuplicates = reject
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: string(body)})

	if status, ok := s.failures[r.Method]; ok {
		http.Error(w, http.StatusText(status), status)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/labels" && r.Method == http.MethodGet:
		if len(s.labels) == 0 {
			writeNotFound(w)
			return
		}
		writeJSON(w, s.labels)

	case path == "/search" && r.Method == http.MethodGet:
		s.search(w, r.URL.Query().Get("query"))

	case strings.HasSuffix(path, "/labels") && r.Method == http.MethodGet:
		s.writeIssue(w, strings.TrimSuffix(path, "/labels"))

	case strings.HasSuffix(path, "/labels") && r.Method == http.MethodPost:
		key := strings.TrimSuffix(path, "/labels")
		var ids []label.ID
		if err := json.Unmarshal(body, &ids); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if s.rejectDuplicates {
			for _, id := range ids {
				if slices.Contains(s.issues[key], id) {
					http.Error(w, "label already applied", http.StatusConflict)
					return
				}
			}
		}
		s.store(key, append(slices.Clone(s.issues[key]), ids...))
		s.writeIssue(w, key)

	case strings.HasSuffix(path, "/labels") && r.Method == http.MethodPatch:
		key := strings.TrimSuffix(path, "/labels")
		var patch struct {
			Add    []label.ID `json:"addLabelIds"`
			Remove []label.ID `json:"removeLabelIds"`
		}
		if err := json.Unmarshal(body, &patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var revised []label.ID
		for _, id := range append(slices.Clone(s.issues[key]), patch.Add...) {
			if !slices.Contains(patch.Remove, id) {
				revised = append(revised, id)
			}
		}
		s.store(key, revised)
		s.writeIssue(w, key)

	case strings.Contains(path, "/labels/") && r.Method == http.MethodDelete:
		i := strings.LastIndex(path, "/labels/")
		key, raw := path[:i], path[i+len("/labels/"):]
		idx := slices.IndexFunc(s.issues[key], func(id label.ID) bool { return id.String() == raw })
		if idx < 0 && s.rejectDuplicates {
			http.Error(w, "label not applied", http.StatusConflict)
			return
		}
		if idx >= 0 {
			s.issues[key] = slices.Delete(s.issues[key], idx, idx+1)
		}
		s.writeIssue(w, key)

	default:
		http.NotFound(w, r)
	}
}

// store はラベル一覧に無いIDを捨て、重複を除いて保存する
func (s *Server) store(key string, ids []label.ID) {
	var kept []label.ID
	for _, id := range ids {
		if slices.Contains(kept, id) || !slices.ContainsFunc(s.labels, func(l label.Label) bool { return l.ID == id }) {
			continue
		}
		kept = append(kept, id)
	}
	s.issues[key] = kept
}

func (s *Server) writeIssue(w http.ResponseWriter, key string) {
	writeJSON(w, issuePayload{Path: strings.TrimPrefix(key, "/"), Labels: s.lookup(s.issues[key])})
}

// search は名前にqueryを含むか、fieldsにqueryというキーを持つラベルが
// 付いたIssueの検索URLを返す。Issueが1件も無ければ空配列を返す
func (s *Server) search(w http.ResponseWriter, query string) {
	if len(s.issues) == 0 {
		writeJSON(w, []string{})
		return
	}

	var matching []label.ID
	for _, l := range s.labels {
		if strings.Contains(l.Name, query) || hasField(l, query) {
			matching = append(matching, l.ID)
		}
	}

	keys := make([]string, 0, len(s.issues))
	for key := range s.issues {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var numbers []string
	for _, key := range keys {
		if slices.ContainsFunc(s.issues[key], func(id label.ID) bool { return slices.Contains(matching, id) }) {
			numbers = append(numbers, key[strings.LastIndex(key, "/")+1:])
		}
	}
	writeJSON(w, SearchURL+strings.Join(numbers, "+"))
}

func hasField(l label.Label, key string) bool {
	data, err := json.Marshal(l.Fields)
	if err != nil {
		return false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	_, ok := fields[key]
	return ok
}

func (s *Server) lookup(ids []label.ID) []label.Label {
	out := make([]label.Label, 0, len(ids))
	for _, id := range ids {
		if i := slices.IndexFunc(s.labels, func(l label.Label) bool { return l.ID == id }); i >= 0 {
			out = append(out, s.labels[i])
		}
	}
	return out
}

func normalize(issueKey string) string {
	return "/" + strings.Trim(issueKey, "/")
}

func writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
