package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexWebsite indexes a website (fire-and-forget to Meilisearch).
func (s *Service) IndexWebsite(w WebsiteRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexWebsite(w); err != nil {
			log.Printf("search: index website %s: %v", w.ID, err)
		}
	}()
}

// IndexProduct indexes a product (fire-and-forget to Meilisearch).
func (s *Service) IndexProduct(p ProductRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexProduct(p); err != nil {
			log.Printf("search: index product %s: %v", p.ID, err)
		}
	}()
}

// DeleteWebsite removes a website from the search index (fire-and-forget).
func (s *Service) DeleteWebsite(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteWebsite(id); err != nil {
			log.Printf("search: delete website %s: %v", id, err)
		}
	}()
}

// DeleteProduct removes a product from the search index (fire-and-forget).
func (s *Service) DeleteProduct(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteProduct(id); err != nil {
			log.Printf("search: delete product %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes the given records to Meilisearch.
func (s *Service) ReindexAll(websites []WebsiteRecord, products []ProductRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if len(websites) > 0 {
		if err := s.meili.IndexWebsites(websites); err != nil {
			log.Printf("search: reindex websites: %v", err)
		}
	}
	if len(products) > 0 {
		if err := s.meili.IndexProducts(products); err != nil {
			log.Printf("search: reindex products: %v", err)
		}
	}
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	websites, products, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.ReindexAll(websites, products)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
