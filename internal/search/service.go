package search

import (
	"context"
	"log"

	"taxportal/api/internal/rbac"
	"taxportal/api/internal/store"
)

// Fallback runs a database search when Meilisearch cannot serve the query.
type Fallback interface {
	SearchInstitutions(ctx context.Context, scope store.Scope, term string) ([]store.InstitutionUser, error)
}

// Service is the facade that tries Meilisearch first and falls back to an
// ILIKE scan over the institution table.
type Service struct {
	meili    *Meili
	fallback Fallback
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured; the fallback then serves every query.
func NewService(meili *Meili, fallback Fallback) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search answers an institution query within the given scope.
func (s *Service) Search(ctx context.Context, scope store.Scope, text string, limit int) Response {
	q := Query{Text: text, Limit: limit}
	if !scope.Unrestricted() {
		q.DivisionID = scope.DivisionID
	}

	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: text}
		}
		log.Printf("search: meilisearch error, falling back to database: %v", err)
	}

	users, err := s.fallback.SearchInstitutions(ctx, scope, text)
	if err != nil {
		log.Printf("search: database fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: text}
	}
	results := make([]Result, 0, len(users))
	for _, u := range users {
		results = append(results, Result{
			ID:                 u.InstitutionID,
			InstitutionName:    u.InstitutionName,
			NameOfKhathadar:    u.NameOfKhathadar,
			KhathaOrPropertyNo: u.KhathaOrPropertyNo,
			PID:                u.PID,
			VillageOrCity:      u.VillageOrCity,
		})
	}
	return Response{Results: results, Total: len(results), Query: text}
}

// IndexInstitution pushes one institution into the index, fire-and-forget.
// Registration never waits on (or fails because of) the search backend.
func (s *Service) IndexInstitution(user store.InstitutionUser) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexInstitution(recordFor(user)); err != nil {
			log.Printf("search: index institution %s: %v", user.InstitutionID, err)
		}
	}()
}

// DeleteInstitution removes an institution from the index, fire-and-forget.
func (s *Service) DeleteInstitution(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteInstitution(id); err != nil {
			log.Printf("search: delete institution %s: %v", id, err)
		}
	}()
}

// ReindexAll reloads every institution from the database into Meilisearch.
// Called at startup when Meilisearch is healthy.
func (s *Service) ReindexAll(ctx context.Context, loader interface {
	ListInstitutionUsers(ctx context.Context, scope store.Scope) ([]store.InstitutionUser, error)
}) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	users, err := loader.ListInstitutionUsers(ctx, store.Scope{Role: rbac.RoleAdmin})
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	records := make([]InstitutionRecord, 0, len(users))
	for _, u := range users {
		records = append(records, recordFor(u))
	}
	if err := s.meili.IndexInstitutions(records); err != nil {
		log.Printf("search: reindex institutions: %v", err)
	}
}

func recordFor(u store.InstitutionUser) InstitutionRecord {
	return InstitutionRecord{
		ID:                 u.InstitutionID,
		DivisionID:         u.DivisionID,
		InstitutionName:    u.InstitutionName,
		NameOfKhathadar:    u.NameOfKhathadar,
		KhathaOrPropertyNo: u.KhathaOrPropertyNo,
		PID:                u.PID,
		VillageOrCity:      u.VillageOrCity,
		District:           u.District,
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
