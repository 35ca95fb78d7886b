package search

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxInstitutions = "taxportal_institutions"

// Meili backs institution search with Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the institution
// index. The client starts unhealthy if the initial connection fails; the
// background monitor flips it back when the server recovers.
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
		Uid:        idxInstitutions,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxInstitutions, err)
	}

	index := m.client.Index(idxInstitutions)
	filterable := []interface{}{"divisionId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxInstitutions, err)
	}
	searchable := []string{"institutionName", "nameOfKhathadar", "khathaOrPropertyNo", "pid", "villageOrCity", "district"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxInstitutions, err)
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

// Search queries the institution index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	sr := &meili.SearchRequest{
		Limit: limit,
	}
	if q.DivisionID != "" {
		sr.Filter = fmt.Sprintf("divisionId = %q", q.DivisionID)
	}

	resp, err := m.client.Index(idxInstitutions).Search(q.Text, sr)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, Result{
			ID:                 decodeString(hit, "id"),
			InstitutionName:    decodeString(hit, "institutionName"),
			NameOfKhathadar:    decodeString(hit, "nameOfKhathadar"),
			KhathaOrPropertyNo: decodeString(hit, "khathaOrPropertyNo"),
			PID:                decodeString(hit, "pid"),
			VillageOrCity:      decodeString(hit, "villageOrCity"),
		})
	}
	return results, int(resp.EstimatedTotalHits), nil
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

// IndexInstitution adds or updates one institution in the search index.
func (m *Meili) IndexInstitution(record InstitutionRecord) error {
	_, err := m.client.Index(idxInstitutions).AddDocuments([]InstitutionRecord{record}, nil)
	return err
}

// IndexInstitutions bulk-indexes institutions.
func (m *Meili) IndexInstitutions(records []InstitutionRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxInstitutions).AddDocuments(records, nil)
	return err
}

// DeleteInstitution removes an institution from the search index.
func (m *Meili) DeleteInstitution(id string) error {
	_, err := m.client.Index(idxInstitutions).DeleteDocument(id, nil)
	return err
}
