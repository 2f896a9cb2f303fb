package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, plan, is_email_verified, verification_token, verification_expires_at)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $8)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Plan, user.IsEmailVerified, user.VerificationToken, user.VerificationExpiresAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, plan, is_email_verified, verification_token
		FROM users WHERE email = LOWER($1) AND deactivated_at IS NULL
	`, email))
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, plan, is_email_verified, verification_token
		FROM users WHERE id = $1 AND deactivated_at IS NULL
	`, userID))
}

func (s *PostgresStore) scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Plan, &user.IsEmailVerified, &user.VerificationToken)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW() WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("update verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_email_verified=TRUE, verification_token='', verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserPlan(ctx context.Context, userID, plan string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET plan=$2, updated_at=NOW() WHERE id=$1`, userID, plan)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return nil
}

// --- password resets ---

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (token) DO NOTHING
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get password reset: %w", err)
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

// --- refresh sessions + revoked access tokens ---

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email, u.password_hash, u.plan, u.is_email_verified, u.verification_token
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, tokenHash))
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// --- websites ---

const websiteColumns = `id, owner_id, name, content, settings, published, stripe_account_id, paypal_merchant_id, preview_url, created_at, updated_at`

func (s *PostgresStore) CreateWebsite(ctx context.Context, site Website) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO websites (id, owner_id, name, content, settings, published)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, site.ID, site.OwnerID, site.Name, site.Content, site.Settings, site.Published)
	if err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWebsite(ctx context.Context, websiteID string) (Website, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+websiteColumns+` FROM websites WHERE id=$1`, websiteID)
	return scanWebsite(row)
}

func scanWebsite(row *sql.Row) (Website, error) {
	var site Website
	err := row.Scan(&site.ID, &site.OwnerID, &site.Name, &site.Content, &site.Settings, &site.Published,
		&site.StripeAccountID, &site.PayPalMerchantID, &site.PreviewURL, &site.CreatedAt, &site.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Website{}, ErrNotFound
	}
	if err != nil {
		return Website{}, fmt.Errorf("scan website: %w", err)
	}
	return site, nil
}

func (s *PostgresStore) ListWebsitesByOwner(ctx context.Context, ownerID string) ([]Website, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+websiteColumns+` FROM websites WHERE owner_id=$1 ORDER BY updated_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	defer rows.Close()

	var sites []Website
	for rows.Next() {
		var site Website
		if err := rows.Scan(&site.ID, &site.OwnerID, &site.Name, &site.Content, &site.Settings, &site.Published,
			&site.StripeAccountID, &site.PayPalMerchantID, &site.PreviewURL, &site.CreatedAt, &site.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan website row: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (s *PostgresStore) CountWebsitesByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM websites WHERE owner_id=$1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count websites: %w", err)
	}
	return count, nil
}

// UpdateWebsiteDocument is a full-replace write of name, legacy content and
// the settings blob. Settings are not merged with the stored value; callers
// pass the complete desired blob.
func (s *PostgresStore) UpdateWebsiteDocument(ctx context.Context, websiteID, name string, content, settings []byte) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE websites SET name=$2, content=$3, settings=$4, updated_at=NOW() WHERE id=$1
	`, websiteID, name, content, settings)
	if err != nil {
		return fmt.Errorf("update website document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update website rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RenameWebsite(ctx context.Context, websiteID, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE websites SET name=$2, updated_at=NOW() WHERE id=$1`, websiteID, name)
	if err != nil {
		return fmt.Errorf("rename website: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetWebsitePublished(ctx context.Context, websiteID string, published bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE websites SET published=$2, updated_at=NOW() WHERE id=$1`, websiteID, published)
	if err != nil {
		return fmt.Errorf("set website published: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetWebsitePreviewURL(ctx context.Context, websiteID, previewURL string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE websites SET preview_url=$2, updated_at=NOW() WHERE id=$1`, websiteID, previewURL)
	if err != nil {
		return fmt.Errorf("set website preview url: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateWebsitePayment(ctx context.Context, websiteID, stripeAccountID, paypalMerchantID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE websites SET stripe_account_id=$2, paypal_merchant_id=$3, updated_at=NOW() WHERE id=$1
	`, websiteID, stripeAccountID, paypalMerchantID)
	if err != nil {
		return fmt.Errorf("update website payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteWebsite(ctx context.Context, websiteID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM websites WHERE id=$1`, websiteID)
	if err != nil {
		return fmt.Errorf("delete website: %w", err)
	}
	return nil
}

// --- templates ---

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, description, preview_url, template_data, created_at
		FROM templates ORDER BY category, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var tpl Template
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Category, &tpl.Description, &tpl.PreviewURL, &tpl.TemplateData, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template row: %w", err)
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

func (s *PostgresStore) GetTemplate(ctx context.Context, templateID string) (Template, error) {
	var tpl Template
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, description, preview_url, template_data, created_at
		FROM templates WHERE id=$1
	`, templateID).Scan(&tpl.ID, &tpl.Name, &tpl.Category, &tpl.Description, &tpl.PreviewURL, &tpl.TemplateData, &tpl.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	if err != nil {
		return Template{}, fmt.Errorf("get template: %w", err)
	}
	return tpl, nil
}

// UpsertTemplate inserts or refreshes a template. Used at startup to seed
// the builtin catalog.
func (s *PostgresStore) UpsertTemplate(ctx context.Context, tpl Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, category, description, preview_url, template_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			category=EXCLUDED.category,
			description=EXCLUDED.description,
			preview_url=EXCLUDED.preview_url,
			template_data=EXCLUDED.template_data
	`, tpl.ID, tpl.Name, tpl.Category, tpl.Description, tpl.PreviewURL, tpl.TemplateData)
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	return nil
}

// --- products ---

func (s *PostgresStore) InsertProduct(ctx context.Context, product Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, website_id, name, description, price_cents, currency, image_url, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, product.ID, product.WebsiteID, product.Name, product.Description, product.PriceCents, product.Currency, product.ImageURL, product.Active)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, product Product) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products SET name=$2, description=$3, price_cents=$4, currency=$5, image_url=$6, active=$7, updated_at=NOW()
		WHERE id=$1
	`, product.ID, product.Name, product.Description, product.PriceCents, product.Currency, product.ImageURL, product.Active)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, productID string) (Product, error) {
	var p Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, website_id, name, description, price_cents, currency, image_url, active, created_at, updated_at
		FROM products WHERE id=$1
	`, productID).Scan(&p.ID, &p.WebsiteID, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.ImageURL, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListProductsByWebsite(ctx context.Context, websiteID string) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, website_id, name, description, price_cents, currency, image_url, active, created_at, updated_at
		FROM products WHERE website_id=$1 ORDER BY created_at
	`, websiteID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.WebsiteID, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.ImageURL, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) CountProductsByWebsite(ctx context.Context, websiteID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE website_id=$1`, websiteID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, productID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, productID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// --- orders ---

func (s *PostgresStore) InsertOrder(ctx context.Context, order Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (id, website_id, customer_email, items, total_cents, currency, status, provider, provider_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, order.ID, order.WebsiteID, order.CustomerEmail, order.Items, order.TotalCents, order.Currency, order.Status, order.Provider, order.ProviderRef)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, website_id, customer_email, items, total_cents, currency, status, provider, provider_ref, created_at
		FROM orders WHERE id=$1
	`, orderID).Scan(&o.ID, &o.WebsiteID, &o.CustomerEmail, &o.Items, &o.TotalCents, &o.Currency, &o.Status, &o.Provider, &o.ProviderRef, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) ListOrdersByWebsite(ctx context.Context, websiteID string) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, website_id, customer_email, items, total_cents, currency, status, provider, provider_ref, created_at
		FROM orders WHERE website_id=$1 ORDER BY created_at DESC
	`, websiteID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.WebsiteID, &o.CustomerEmail, &o.Items, &o.TotalCents, &o.Currency, &o.Status, &o.Provider, &o.ProviderRef, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}
