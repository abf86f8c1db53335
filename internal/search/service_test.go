package search

import (
	"errors"
	"testing"
)

type stubSearcher struct {
	results []Result
	total   int
	err     error
	queries []string
}

func (s *stubSearcher) Search(text string, limit int) ([]Result, int, error) {
	s.queries = append(s.queries, text)
	return s.results, s.total, s.err
}

func (s *stubSearcher) Healthy() bool { return true }

func TestServiceFallsBackWithoutMeilisearch(t *testing.T) {
	fallback := &stubSearcher{
		results: []Result{{ID: "vane-1", Title: "Run"}},
		total:   1,
	}
	svc := NewService(nil, fallback)

	resp := svc.Search("run", 20)
	if len(fallback.queries) != 1 || fallback.queries[0] != "run" {
		t.Fatalf("expected fallback queried with run, got %v", fallback.queries)
	}
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Errorf("expected one result, got %+v", resp)
	}
	if resp.Query != "run" {
		t.Errorf("expected query echoed, got %q", resp.Query)
	}
}

func TestServiceReturnsEmptySliceOnFallbackError(t *testing.T) {
	fallback := &stubSearcher{err: errors.New("db gone")}
	svc := NewService(nil, fallback)

	resp := svc.Search("run", 20)
	if resp.Results == nil {
		t.Fatal("expected non-nil results slice")
	}
	if len(resp.Results) != 0 || resp.Total != 0 {
		t.Errorf("expected empty response, got %+v", resp)
	}
}

func TestServiceIndexingIsNoopWithoutMeilisearch(t *testing.T) {
	svc := NewService(nil, &stubSearcher{})

	// None of these may panic or touch the fallback.
	svc.IndexVane(VaneRecord{ID: "vane-1", Title: "Run"})
	svc.IndexVanes([]VaneRecord{{ID: "vane-2", Title: "Read"}})
	svc.RemoveVane("vane-1")
}

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"run":      "run",
		"100%":     `100\%`,
		"a_b":      `a\_b`,
		`back\ref`: `back\\ref`,
	}
	for input, want := range cases {
		if got := escapeLike(input); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", input, got, want)
		}
	}
}
