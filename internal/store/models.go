package store

import "time"

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Plan                  string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Website is the persisted site document. Content is the legacy single-page
// element array; the authoritative multi-page state lives inside Settings,
// an opaque JSON blob owned by the persistence gateway.
type Website struct {
	ID               string
	OwnerID          string
	Name             string
	Content          []byte
	Settings         []byte
	Published        bool
	StripeAccountID  string
	PayPalMerchantID string
	PreviewURL       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Template is a stored starter template. TemplateData carries the raw
// payload handed to the normalizer, `template_data` envelope included.
type Template struct {
	ID           string
	Name         string
	Category     string
	Description  string
	PreviewURL   string
	TemplateData []byte
	CreatedAt    time.Time
}

type Product struct {
	ID          string
	WebsiteID   string
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	ImageURL    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order snapshots the purchased items as JSON so later product edits never
// rewrite history.
type Order struct {
	ID            string
	WebsiteID     string
	CustomerEmail string
	Items         []byte
	TotalCents    int64
	Currency      string
	Status        string
	Provider      string
	ProviderRef   string
	CreatedAt     time.Time
}
