// Package search answers title queries over vanes, preferring Meilisearch
// and falling back to Postgres when it is unavailable.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// VaneRecord is the data indexed per vane.
type VaneRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Searcher can execute a title search.
type Searcher interface {
	Search(text string, limit int) ([]Result, int, error)
	Healthy() bool
}
