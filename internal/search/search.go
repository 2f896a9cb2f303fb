package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultWebsite ResultType = "website"
	ResultProduct ResultType = "product"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	WebsiteID string     `json:"websiteId"`
	OwnerID   string     `json:"ownerId"`
	Published bool       `json:"published,omitempty"`
}

// Query describes a search request. FilterOwnerID scopes dashboard searches
// to the signed-in user; FilterWebsiteID scopes product searches to one site.
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterOwnerID   string
	FilterWebsiteID string
	Limit           int
	Offset          int
	PublishedOnly   bool
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexWebsite(w WebsiteRecord) error
	IndexProduct(p ProductRecord) error
	DeleteWebsite(id string) error
	DeleteProduct(id string) error
}

// WebsiteRecord is the data we index for a website.
type WebsiteRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	Published bool   `json:"published"`
}

// ProductRecord is the data we index for a product.
type ProductRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	WebsiteID   string `json:"websiteId"`
	OwnerID     string `json:"ownerId"`
	Active      bool   `json:"active"`
}
