package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxVanes = "vanes"

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the vane index. The
// caller proceeds without it when the instance is unreachable; the health
// monitor picks it back up.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxVanes,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxVanes, err)
	}

	searchable := []string{"title"}
	if _, err := m.client.Index(idxVanes).UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxVanes, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the vane index by title.
func (m *Meili) Search(text string, limit int) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	if limit <= 0 {
		limit = 20
	}

	resp, err := m.client.Index(idxVanes).Search(text, &meili.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, Result{
			ID:    decodeString(hit, "id"),
			Title: decodeString(hit, "title"),
		})
	}
	return results, int(resp.EstimatedTotalHits), nil
}

// IndexVane adds or updates a vane in the search index.
func (m *Meili) IndexVane(record VaneRecord) error {
	_, err := m.client.Index(idxVanes).AddDocuments([]VaneRecord{record}, nil)
	return err
}

// IndexVanes bulk-indexes vanes.
func (m *Meili) IndexVanes(records []VaneRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxVanes).AddDocuments(records, nil)
	return err
}

// DeleteVane removes a vane from the search index.
func (m *Meili) DeleteVane(id string) error {
	_, err := m.client.Index(idxVanes).DeleteDocument(id, nil)
	return err
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
