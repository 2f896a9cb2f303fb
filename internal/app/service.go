package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"siteforge/api/internal/assets"
	"siteforge/api/internal/auth"
	"siteforge/api/internal/authpw"
	"siteforge/api/internal/billing"
	"siteforge/api/internal/builder"
	"siteforge/api/internal/config"
	"siteforge/api/internal/element"
	"siteforge/api/internal/email"
	"siteforge/api/internal/publish"
	"siteforge/api/internal/revisions"
	"siteforge/api/internal/search"
	"siteforge/api/internal/session"
	"siteforge/api/internal/site"
	"siteforge/api/internal/store"
	"siteforge/api/internal/template"
	"siteforge/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Plan         string
	JTI          string
	ExpiresAt    time.Time
}

// SaveWebsiteInput is the full builder document as sent by a save request.
// A save replaces the stored document wholesale; the last writer wins.
type SaveWebsiteInput struct {
	Name          string                       `json:"name"`
	Pages         []site.Page                  `json:"pages"`
	PagesContent  map[string]json.RawMessage   `json:"pagesContent"`
	PagesSettings map[string]site.PageSettings `json:"pagesSettings"`
}

type AddPageInput struct {
	Title string `json:"title"`
}

type UpdatePageInput struct {
	Title    string             `json:"title"`
	Slug     string             `json:"slug"`
	MakeHome bool               `json:"makeHome"`
	Settings *site.PageSettings `json:"settings"`
}

type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
	Currency    string `json:"currency"`
	ImageURL    string `json:"imageUrl"`
	Active      *bool  `json:"active"`
}

type CheckoutItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CheckoutInput struct {
	CustomerEmail string              `json:"customerEmail"`
	Items         []CheckoutItemInput `json:"items"`
	SuccessURL    string              `json:"successUrl"`
	CancelURL     string              `json:"cancelUrl"`
}

type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	UpdateUserPlan(context.Context, string, string) error
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	CreateWebsite(context.Context, store.Website) error
	GetWebsite(context.Context, string) (store.Website, error)
	ListWebsitesByOwner(context.Context, string) ([]store.Website, error)
	CountWebsitesByOwner(context.Context, string) (int, error)
	UpdateWebsiteDocument(context.Context, string, string, []byte, []byte) error
	RenameWebsite(context.Context, string, string) error
	SetWebsitePublished(context.Context, string, bool) error
	SetWebsitePreviewURL(context.Context, string, string) error
	UpdateWebsitePayment(context.Context, string, string, string) error
	DeleteWebsite(context.Context, string) error
	ListTemplates(context.Context) ([]store.Template, error)
	GetTemplate(context.Context, string) (store.Template, error)
	UpsertTemplate(context.Context, store.Template) error
	InsertProduct(context.Context, store.Product) error
	UpdateProduct(context.Context, store.Product) error
	GetProduct(context.Context, string) (store.Product, error)
	ListProductsByWebsite(context.Context, string) ([]store.Product, error)
	CountProductsByWebsite(context.Context, string) (int, error)
	DeleteProduct(context.Context, string) error
	InsertOrder(context.Context, store.Order) error
	GetOrder(context.Context, string) (store.Order, error)
	ListOrdersByWebsite(context.Context, string) ([]store.Order, error)
	UpdateOrderStatus(context.Context, string, string) error
	Ping(ctx context.Context) error
}

// sessionStore holds refresh sessions. Postgres backs it by default; a
// Redis store takes over when configured so refresh tokens expire on
// their own.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// pendingSave is the latest document handed to the save coordinator for a
// website. The coordinator collapses overlapping saves; only the newest
// pending document is flushed.
type pendingSave struct {
	name         string
	elements     []element.BuilderElement
	pageSettings site.PageSettings
	settings     site.Settings
	author       string
	message      string
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	visited   site.VisitedStore
	gateway   *site.Gateway
	revisions *revisions.Service
	search    *search.Service
	assets    *assets.Service
	payments  *billing.Payments
	email     *email.Service
	authPw    *authpw.Service

	saverMu sync.Mutex
	savers  map[string]*builder.SaveCoordinator
	pending map[string]pendingSave
}

func New(cfg config.Config, dataStore *store.PostgresStore, revisionService *revisions.Service, searchService *search.Service) *Service {
	s := &Service{
		cfg:       cfg,
		store:     dataStore,
		sessions:  dataStore,
		visited:   newMemoryVisited(),
		gateway:   site.NewGateway(dataStore),
		revisions: revisionService,
		search:    searchService,
		savers:    map[string]*builder.SaveCoordinator{},
		pending:   map[string]pendingSave{},
	}
	return s
}

// NewWithSessionStore routes refresh sessions and visited markers through
// Redis instead of Postgres.
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, redisStore *session.RedisStore, revisionService *revisions.Service, searchService *search.Service) *Service {
	s := New(cfg, dataStore, revisionService, searchService)
	s.sessions = redisStore
	s.visited = redisStore
	return s
}

func (s *Service) SetAuthPasswordService(svc *authpw.Service) { s.authPw = svc }
func (s *Service) SetEmailService(svc *email.Service)         { s.email = svc }
func (s *Service) SetAssetService(svc *assets.Service)        { s.assets = svc }
func (s *Service) SetPayments(p *billing.Payments)            { s.payments = p }

func (s *Service) AuthPasswordService() *authpw.Service { return s.authPw }

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap seeds the builtin starter templates. IDs are stable, so a
// re-run refreshes the stored payloads instead of duplicating rows.
func (s *Service) Bootstrap(ctx context.Context) error {
	for _, tpl := range template.Builtin() {
		if err := s.store.UpsertTemplate(ctx, tpl); err != nil {
			return fmt.Errorf("seed template %s: %w", tpl.ID, err)
		}
	}
	return nil
}

// --- sessions ---

func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	holder, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	// The refresh record only pins the user id. Name and plan come from
	// the user row so a plan change takes effect on the next refresh.
	user, err := s.store.GetUserByID(ctx, holder.ID)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Plan: user.Plan,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Plan:         user.Plan,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Plan:      user.Plan,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, sess Session, refreshToken string) error {
	if sess.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, sess.JTI, sess.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// --- account ---

func (s *Service) UpdatePlan(ctx context.Context, sess Session, plan string) (map[string]any, error) {
	plan = strings.TrimSpace(strings.ToLower(plan))
	if !billing.ValidPlan(plan) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unknown plan", map[string]any{"plan": plan})
	}
	if err := s.store.UpdateUserPlan(ctx, sess.UserID, plan); err != nil {
		return nil, err
	}
	return map[string]any{"plan": plan, "limits": limitsPayload(billing.LimitsFor(plan))}, nil
}

// SendVerificationEmail delivers the signup verification link in the
// background. A nil or unconfigured mailer turns this into a no-op; the
// HTTP layer falls back to the dev bypass instead.
func (s *Service) SendVerificationEmail(to, userName, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := strings.TrimRight(s.cfg.AppBaseURL, "/") + "/verify-email?token=" + token
	go func() {
		if err := s.email.SendVerificationEmail(to, userName, url); err != nil {
			log.Printf("app: verification email to %s: %v", to, err)
		}
	}()
}

func (s *Service) SendPasswordResetEmail(to, token string) {
	if !s.SMTPConfigured() {
		return
	}
	url := strings.TrimRight(s.cfg.AppBaseURL, "/") + "/reset-password?token=" + token
	go func() {
		if err := s.email.SendPasswordResetEmail(to, to, url); err != nil {
			log.Printf("app: password reset email to %s: %v", to, err)
		}
	}()
}

// --- websites ---

func (s *Service) ListWebsites(ctx context.Context, sess Session) (map[string]any, error) {
	sites, err := s.store.ListWebsitesByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(sites))
	for _, w := range sites {
		items = append(items, websiteSummary(w))
	}
	return map[string]any{
		"websites": items,
		"plan":     sess.Plan,
		"limits":   limitsPayload(billing.LimitsFor(sess.Plan)),
	}, nil
}

func (s *Service) CreateWebsite(ctx context.Context, sess Session, name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	count, err := s.store.CountWebsitesByOwner(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !billing.CanCreateWebsite(sess.Plan, count) {
		return nil, domainError(http.StatusForbidden, "PLAN_LIMIT", "Website limit reached for your plan", map[string]any{"plan": sess.Plan})
	}

	website := store.Website{
		ID:       util.NewID("site"),
		OwnerID:  sess.UserID,
		Name:     name,
		Content:  []byte("[]"),
		Settings: []byte("{}"),
	}
	if err := s.store.CreateWebsite(ctx, website); err != nil {
		return nil, err
	}

	if s.revisions != nil {
		initial := revisions.Snapshot{Content: json.RawMessage("[]"), Settings: json.RawMessage("{}")}
		if err := s.revisions.EnsureWebsiteRepo(website.ID, initial, sess.UserName); err != nil {
			log.Printf("app: init revisions for %s: %v", website.ID, err)
		}
	}
	s.indexWebsite(website)

	// First fetch synthesizes the home page and persists the migration.
	data := s.gateway.FetchWebsite(ctx, website.ID)
	if data == nil {
		return nil, fmt.Errorf("load created website %s failed", website.ID)
	}
	return builderPayload(data, true), nil
}

// OpenWebsite loads the full builder document and decides whether the
// template chooser should be offered for this visit.
func (s *Service) OpenWebsite(ctx context.Context, sess Session, websiteID string) (map[string]any, error) {
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}
	data := s.gateway.FetchWebsite(ctx, websiteID)
	if data == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
	}

	workflow := site.NewTemplateWorkflow(s.gateway, builder.NewSession(), s.visited, sess.UserID)
	state := workflow.EvaluateOnLoad(ctx, data)

	payload := builderPayload(data, state == site.StateOffering)
	payload["previewUrl"] = record.PreviewURL
	payload["paymentConfigured"] = billing.Configured(record)
	return payload, nil
}

func (s *Service) SaveWebsiteDocument(ctx context.Context, sess Session, websiteID string, input SaveWebsiteInput) (map[string]any, error) {
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = record.Name
	}
	if len(input.Pages) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one page is required", nil)
	}
	if !billing.CanAddPage(sess.Plan, len(input.Pages)-1) {
		return nil, domainError(http.StatusForbidden, "PLAN_LIMIT", "Page limit reached for your plan", map[string]any{"plan": sess.Plan})
	}

	settings := site.Settings{
		Pages:         input.Pages,
		PagesContent:  map[string][]element.BuilderElement{},
		PagesSettings: map[string]site.PageSettings{},
	}
	for id, raw := range input.PagesContent {
		elements, err := element.NormalizeJSON(raw)
		if err != nil {
			return nil, domainError(http.StatusUnprocessableEntity, "INVALID_CONTENT", "page content is not a valid element tree", map[string]any{"pageId": id})
		}
		settings.PagesContent[id] = elements
	}
	for id, ps := range input.PagesSettings {
		settings.PagesSettings[id] = ps
	}
	ensureHomeFlag(settings.Pages)

	home, ok := settings.HomePage()
	if !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one page is required", nil)
	}
	homeElements := settings.PagesContent[home.ID]
	if homeElements == nil {
		homeElements = []element.BuilderElement{}
		settings.PagesContent[home.ID] = homeElements
	}

	s.saverMu.Lock()
	s.pending[websiteID] = pendingSave{
		name:         name,
		elements:     homeElements,
		pageSettings: settings.PagesSettings[home.ID],
		settings:     settings,
		author:       sess.UserName,
		message:      "Save " + name,
	}
	s.saverMu.Unlock()

	saver := s.saverFor(websiteID)
	ran, err := saver.Save(ctx)
	if err != nil {
		return nil, err
	}
	s.indexWebsite(store.Website{ID: record.ID, OwnerID: record.OwnerID, Name: name, Published: record.Published})
	if !ran {
		// Another save for this site is mid-flight. Keep the newer
		// document dirty so the debounced flush (or the autosave loop,
		// if that one is also dropped) persists it.
		saver.MarkDirty()
		return map[string]any{"ok": true, "queued": true, "status": saver.Status()}, nil
	}
	return map[string]any{"ok": true, "savedAt": time.Now().UTC().Format(time.RFC3339)}, nil
}

func (s *Service) saverFor(websiteID string) *builder.SaveCoordinator {
	s.saverMu.Lock()
	defer s.saverMu.Unlock()
	if c, ok := s.savers[websiteID]; ok {
		return c
	}
	c := builder.NewSaveCoordinator(func(ctx context.Context) error {
		return s.flushSave(ctx, websiteID)
	})
	c.StartAutoSave()
	s.savers[websiteID] = c
	return c
}

// flushSave consumes the pending document for websiteID and persists it.
// On failure the document is put back, unless a newer one arrived in the
// meantime, so a retry never resurrects stale content.
func (s *Service) flushSave(ctx context.Context, websiteID string) error {
	s.saverMu.Lock()
	req, ok := s.pending[websiteID]
	if ok {
		delete(s.pending, websiteID)
	}
	s.saverMu.Unlock()
	if !ok {
		return nil
	}
	settings := req.settings
	if saved := s.gateway.SaveWebsite(ctx, websiteID, req.name, req.elements, req.pageSettings, &settings); !saved {
		s.saverMu.Lock()
		if _, newer := s.pending[websiteID]; !newer {
			s.pending[websiteID] = req
		}
		s.saverMu.Unlock()
		return fmt.Errorf("persist website %s failed", websiteID)
	}
	s.recordRevision(websiteID, req)
	return nil
}

func (s *Service) recordRevision(websiteID string, req pendingSave) {
	if s.revisions == nil {
		return
	}
	content, err := json.Marshal(req.elements)
	if err != nil {
		log.Printf("app: marshal revision content for %s: %v", websiteID, err)
		return
	}
	settingsRaw, err := json.Marshal(req.settings)
	if err != nil {
		log.Printf("app: marshal revision settings for %s: %v", websiteID, err)
		return
	}
	snap := revisions.Snapshot{Content: content, Settings: settingsRaw}
	if err := s.revisions.EnsureWebsiteRepo(websiteID, snap, req.author); err != nil {
		log.Printf("app: ensure revisions for %s: %v", websiteID, err)
		return
	}
	if head, _, err := s.revisions.GetHeadSnapshot(websiteID); err == nil && !revisions.HasChanges(head, snap) {
		return
	}
	if _, err := s.revisions.CommitSnapshot(websiteID, snap, req.author, req.message); err != nil {
		log.Printf("app: commit revision for %s: %v", websiteID, err)
	}
}

func (s *Service) RenameWebsite(ctx context.Context, sess Session, websiteID, name string) (map[string]any, error) {
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if err := s.store.RenameWebsite(ctx, websiteID, name); err != nil {
		return nil, err
	}
	record.Name = name
	s.indexWebsite(record)
	return websiteSummary(record), nil
}

func (s *Service) DeleteWebsite(ctx context.Context, sess Session, websiteID string) error {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return err
	}
	if err := s.store.DeleteWebsite(ctx, websiteID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteWebsite(websiteID)
	}
	if s.assets != nil {
		if err := s.assets.RemoveSiteFiles(ctx, websiteID); err != nil {
			log.Printf("app: remove site files for %s: %v", websiteID, err)
		}
	}
	return nil
}

func (s *Service) UpdateWebsitePayment(ctx context.Context, sess Session, websiteID, stripeAccountID, paypalMerchantID string) (map[string]any, error) {
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateWebsitePayment(ctx, websiteID, strings.TrimSpace(stripeAccountID), strings.TrimSpace(paypalMerchantID)); err != nil {
		return nil, err
	}
	record.StripeAccountID = strings.TrimSpace(stripeAccountID)
	record.PayPalMerchantID = strings.TrimSpace(paypalMerchantID)
	return map[string]any{
		"paymentConfigured": billing.Configured(record),
	}, nil
}

// --- publishing ---

// Publish renders every page to static HTML, uploads the files to object
// storage, captures a preview screenshot of the home page, flips the
// published flag and tags the current revision. A missing chromium binary
// only skips the screenshot.
func (s *Service) Publish(ctx context.Context, sess Session, websiteID string) (map[string]any, error) {
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}
	if s.assets == nil {
		return nil, domainError(http.StatusServiceUnavailable, "PUBLISH_UNAVAILABLE", "Object storage is not configured", nil)
	}
	data := s.gateway.FetchWebsite(ctx, websiteID)
	if data == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
	}

	pages, err := publish.RenderSite(data.Name, data.Settings)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}

	files := make([]map[string]any, 0, len(pages))
	for _, page := range pages {
		url, err := s.assets.PutSiteFile(ctx, websiteID, page.Filename, "text/html; charset=utf-8", []byte(page.HTML))
		if err != nil {
			return nil, fmt.Errorf("upload page %s: %w", page.Filename, err)
		}
		files = append(files, map[string]any{"pageId": page.PageID, "filename": page.Filename, "url": url})
	}

	previewURL := s.capturePreview(ctx, websiteID, data)
	if previewURL != "" {
		if err := s.store.SetWebsitePreviewURL(ctx, websiteID, previewURL); err != nil {
			log.Printf("app: save preview url for %s: %v", websiteID, err)
		}
	}

	if ok := s.gateway.PublishWebsite(ctx, websiteID); !ok {
		return nil, fmt.Errorf("publish website %s failed", websiteID)
	}
	s.tagPublish(websiteID)

	record.Published = true
	s.indexWebsite(record)

	return map[string]any{
		"ok":         true,
		"published":  true,
		"previewUrl": previewURL,
		"files":      files,
	}, nil
}

func (s *Service) capturePreview(ctx context.Context, websiteID string, data *site.WebsiteData) string {
	html, err := publish.HomePageHTML(data.Name, data.Settings)
	if err != nil {
		return ""
	}
	shot, err := publish.CaptureScreenshot(html)
	if err != nil {
		if errors.Is(err, publish.ErrScreenshotDependencyMissing) {
			log.Printf("app: preview screenshot skipped: %v", err)
		} else {
			log.Printf("app: preview screenshot for %s: %v", websiteID, err)
		}
		return ""
	}
	url, err := s.assets.PutSiteFile(ctx, websiteID, "preview.png", "image/png", shot)
	if err != nil {
		log.Printf("app: upload preview for %s: %v", websiteID, err)
		return ""
	}
	return url
}

func (s *Service) tagPublish(websiteID string) {
	if s.revisions == nil {
		return
	}
	_, info, err := s.revisions.GetHeadSnapshot(websiteID)
	if err != nil {
		return
	}
	name := "publish-" + time.Now().UTC().Format("20060102-150405")
	if err := s.revisions.TagPublish(websiteID, info.Hash, name); err != nil {
		log.Printf("app: tag publish for %s: %v", websiteID, err)
	}
}

func (s *Service) Unpublish(ctx context.Context, sess Session, websiteID string) (map[string]any, error) {
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}
	if ok := s.gateway.UnpublishWebsite(ctx, websiteID); !ok {
		return nil, fmt.Errorf("unpublish website %s failed", websiteID)
	}
	if s.assets != nil {
		if err := s.assets.RemoveSiteFiles(ctx, websiteID); err != nil {
			log.Printf("app: remove published files for %s: %v", websiteID, err)
		}
	}
	record.Published = false
	s.indexWebsite(record)
	return map[string]any{"ok": true, "published": false}, nil
}

// --- revisions ---

func (s *Service) revisionsFor(ctx context.Context, sess Session, websiteID string) error {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return err
	}
	if !billing.LimitsFor(sess.Plan).CanUseRevisions {
		return domainError(http.StatusForbidden, "PLAN_LIMIT", "Revision history requires a paid plan", map[string]any{"plan": sess.Plan})
	}
	if s.revisions == nil {
		return domainError(http.StatusServiceUnavailable, "REVISIONS_UNAVAILABLE", "Revision history is not configured", nil)
	}
	return nil
}

func (s *Service) ListRevisions(ctx context.Context, sess Session, websiteID string, limit int) (map[string]any, error) {
	if err := s.revisionsFor(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	infos, err := s.revisions.History(websiteID, limit)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "No revision history for this website", nil)
	}
	items := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		items = append(items, revisionPayload(info))
	}
	return map[string]any{"revisions": items}, nil
}

func (s *Service) GetRevision(ctx context.Context, sess Session, websiteID, hash string) (map[string]any, error) {
	if err := s.revisionsFor(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	snap, err := s.revisions.GetSnapshotByHash(websiteID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	info, err := s.revisions.GetRevisionByHash(websiteID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	payload := revisionPayload(info)
	payload["content"] = snap.Content
	payload["settings"] = snap.Settings
	return payload, nil
}

// RestoreRevision overwrites the stored document with an older snapshot
// and records the restore as a new revision on top; history is never
// rewritten.
func (s *Service) RestoreRevision(ctx context.Context, sess Session, websiteID, hash string) (map[string]any, error) {
	if err := s.revisionsFor(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}
	snap, err := s.revisions.GetSnapshotByHash(websiteID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Revision not found", nil)
	}
	if err := s.store.UpdateWebsiteDocument(ctx, websiteID, record.Name, snap.Content, snap.Settings); err != nil {
		return nil, err
	}
	if _, err := s.revisions.CommitSnapshot(websiteID, snap, sess.UserName, "Restore "+hash); err != nil {
		log.Printf("app: record restore for %s: %v", websiteID, err)
	}

	data := s.gateway.FetchWebsite(ctx, websiteID)
	if data == nil {
		return nil, fmt.Errorf("reload website %s after restore failed", websiteID)
	}
	return builderPayload(data, false), nil
}

// --- pages ---

func (s *Service) AddPage(ctx context.Context, sess Session, websiteID string, input AddPageInput) (map[string]any, error) {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	data := s.gateway.FetchWebsite(ctx, websiteID)
	if data == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
	}
	if !billing.CanAddPage(sess.Plan, len(data.Settings.Pages)) {
		return nil, domainError(http.StatusForbidden, "PLAN_LIMIT", "Page limit reached for your plan", map[string]any{"plan": sess.Plan})
	}

	settings := data.Settings
	ensurePageMaps(&settings)

	page := site.Page{
		ID:    util.NewID("page"),
		Title: title,
		Slug:  uniqueSlug(util.Slugify(title), settings.Pages, ""),
	}
	settings.Pages = append(settings.Pages, page)
	settings.PagesContent[page.ID] = []element.BuilderElement{}
	settings.PagesSettings[page.ID] = site.PageSettings{Title: title}

	if err := s.persistSettings(ctx, data, settings, sess.UserName, "Add page "+title); err != nil {
		return nil, err
	}
	return map[string]any{"page": page}, nil
}

func (s *Service) UpdatePage(ctx context.Context, sess Session, websiteID, pageID string, input UpdatePageInput) (map[string]any, error) {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	data := s.gateway.FetchWebsite(ctx, websiteID)
	if data == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
	}

	settings := data.Settings
	ensurePageMaps(&settings)

	idx := -1
	for i, p := range settings.Pages {
		if p.ID == pageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Page not found", nil)
	}

	page := settings.Pages[idx]
	if title := strings.TrimSpace(input.Title); title != "" {
		page.Title = title
	}
	if slug := strings.TrimSpace(input.Slug); slug != "" {
		page.Slug = uniqueSlug(util.Slugify(slug), settings.Pages, page.ID)
	}
	if input.MakeHome {
		for i := range settings.Pages {
			settings.Pages[i].IsHomePage = false
		}
		page.IsHomePage = true
	}
	settings.Pages[idx] = page
	if input.Settings != nil {
		settings.PagesSettings[page.ID] = *input.Settings
	}

	if err := s.persistSettings(ctx, data, settings, sess.UserName, "Update page "+page.Title); err != nil {
		return nil, err
	}
	return map[string]any{"page": page}, nil
}

func (s *Service) DeletePage(ctx context.Context, sess Session, websiteID, pageID string) error {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return err
	}
	data := s.gateway.FetchWebsite(ctx, websiteID)
	if data == nil {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
	}

	settings := data.Settings
	ensurePageMaps(&settings)

	home, _ := settings.HomePage()
	if home.ID == pageID {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "the home page cannot be deleted", nil)
	}

	kept := settings.Pages[:0]
	found := false
	for _, p := range settings.Pages {
		if p.ID == pageID {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Page not found", nil)
	}
	settings.Pages = kept
	delete(settings.PagesContent, pageID)
	delete(settings.PagesSettings, pageID)

	return s.persistSettings(ctx, data, settings, sess.UserName, "Delete page")
}

func (s *Service) persistSettings(ctx context.Context, data *site.WebsiteData, settings site.Settings, author, message string) error {
	home, ok := settings.HomePage()
	if !ok {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "at least one page is required", nil)
	}
	homeElements := settings.PagesContent[home.ID]
	if homeElements == nil {
		homeElements = []element.BuilderElement{}
	}
	if saved := s.gateway.SaveWebsite(ctx, data.ID, data.Name, homeElements, settings.PagesSettings[home.ID], &settings); !saved {
		return fmt.Errorf("persist website %s failed", data.ID)
	}
	data.Settings = settings
	s.recordRevision(data.ID, pendingSave{
		name:         data.Name,
		elements:     homeElements,
		pageSettings: settings.PagesSettings[home.ID],
		settings:     settings,
		author:       author,
		message:      message,
	})
	return nil
}

// --- templates ---

func (s *Service) ListTemplates(ctx context.Context) (map[string]any, error) {
	templates, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, map[string]any{
			"id":          tpl.ID,
			"name":        tpl.Name,
			"category":    tpl.Category,
			"description": tpl.Description,
			"previewUrl":  tpl.PreviewURL,
		})
	}
	return map[string]any{"templates": items}, nil
}

func (s *Service) ApplyTemplate(ctx context.Context, sess Session, websiteID, templateID string) (map[string]any, error) {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Template not found", nil)
		}
		return nil, err
	}
	data := s.gateway.FetchWebsite(ctx, websiteID)
	if data == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
	}

	var payload any
	if err := json.Unmarshal(tpl.TemplateData, &payload); err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_TEMPLATE", "template payload is not valid JSON", nil)
	}

	workflow := site.NewTemplateWorkflow(s.gateway, builder.NewSession(), s.visited, sess.UserID)
	workflow.EvaluateOnLoad(ctx, data)
	if err := workflow.Apply(ctx, data, payload); err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "INVALID_TEMPLATE", err.Error(), nil)
	}

	home, _ := data.Settings.HomePage()
	s.recordRevision(websiteID, pendingSave{
		name:         data.Name,
		elements:     data.Content,
		pageSettings: data.Settings.PagesSettings[home.ID],
		settings:     data.Settings,
		author:       sess.UserName,
		message:      "Apply template " + tpl.Name,
	})
	return builderPayload(data, false), nil
}

// SkipTemplate dismisses the chooser with a blank canvas and marks the
// site visited so the offer never comes back.
func (s *Service) SkipTemplate(ctx context.Context, sess Session, websiteID string) (map[string]any, error) {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	data := s.gateway.FetchWebsite(ctx, websiteID)
	if data == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
	}

	workflow := site.NewTemplateWorkflow(s.gateway, builder.NewSession(), s.visited, sess.UserID)
	workflow.EvaluateOnLoad(ctx, data)
	if err := workflow.Skip(ctx, data); err != nil {
		return nil, err
	}
	return builderPayload(data, false), nil
}

// --- products ---

func (s *Service) ListProducts(ctx context.Context, sess Session, websiteID string) (map[string]any, error) {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	products, err := s.store.ListProductsByWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(products))
	for _, p := range products {
		items = append(items, productPayload(p))
	}
	return map[string]any{"products": items}, nil
}

func (s *Service) CreateProduct(ctx context.Context, sess Session, websiteID string, input ProductInput) (map[string]any, error) {
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}
	limits := billing.LimitsFor(sess.Plan)
	if !limits.CanSellProducts {
		return nil, domainError(http.StatusForbidden, "PLAN_LIMIT", "Selling products requires a paid plan", map[string]any{"plan": sess.Plan})
	}
	count, err := s.store.CountProductsByWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	if !billing.CanAddProduct(sess.Plan, count) {
		return nil, domainError(http.StatusForbidden, "PLAN_LIMIT", "Product limit reached for your plan", map[string]any{"plan": sess.Plan})
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	product := store.Product{
		ID:          util.NewID("prod"),
		WebsiteID:   websiteID,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		PriceCents:  input.PriceCents,
		Currency:    currency,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Active:      active,
	}
	if err := s.store.InsertProduct(ctx, product); err != nil {
		return nil, err
	}
	s.indexProduct(product, record.OwnerID)
	return productPayload(product), nil
}

func (s *Service) UpdateProduct(ctx context.Context, sess Session, websiteID, productID string, input ProductInput) (map[string]any, error) {
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}
	product, err := s.websiteProduct(ctx, websiteID, productID)
	if err != nil {
		return nil, err
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = strings.TrimSpace(input.Description)
	product.PriceCents = input.PriceCents
	if currency := strings.ToUpper(strings.TrimSpace(input.Currency)); currency != "" {
		product.Currency = currency
	}
	product.ImageURL = strings.TrimSpace(input.ImageURL)
	if input.Active != nil {
		product.Active = *input.Active
	}
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	s.indexProduct(product, record.OwnerID)
	return productPayload(product), nil
}

func (s *Service) DeleteProduct(ctx context.Context, sess Session, websiteID, productID string) error {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return err
	}
	if _, err := s.websiteProduct(ctx, websiteID, productID); err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteProduct(productID)
	}
	return nil
}

func (s *Service) websiteProduct(ctx context.Context, websiteID, productID string) (store.Product, error) {
	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Product{}, domainError(http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
		}
		return store.Product{}, err
	}
	if product.WebsiteID != websiteID {
		return store.Product{}, domainError(http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return product, nil
}

// --- orders & checkout ---

var allowedOrderStatuses = map[string]struct{}{
	"pending":   {},
	"paid":      {},
	"fulfilled": {},
	"cancelled": {},
	"refunded":  {},
}

func (s *Service) ListOrders(ctx context.Context, sess Session, websiteID string) (map[string]any, error) {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrdersByWebsite(ctx, websiteID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		items = append(items, orderPayload(o))
	}
	return map[string]any{"orders": items}, nil
}

func (s *Service) GetOrder(ctx context.Context, sess Session, websiteID, orderID string) (map[string]any, error) {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	order, err := s.websiteOrder(ctx, websiteID, orderID)
	if err != nil {
		return nil, err
	}
	return orderPayload(order), nil
}

// UpdateOrderStatus moves an order through its lifecycle. The transition
// to paid triggers the customer confirmation email in the background.
func (s *Service) UpdateOrderStatus(ctx context.Context, sess Session, websiteID, orderID, status string) (map[string]any, error) {
	record, err := s.ownedWebsite(ctx, sess, websiteID)
	if err != nil {
		return nil, err
	}
	order, err := s.websiteOrder(ctx, websiteID, orderID)
	if err != nil {
		return nil, err
	}
	status = strings.TrimSpace(strings.ToLower(status))
	if _, ok := allowedOrderStatuses[status]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown order status", map[string]any{"status": status})
	}
	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	if status == "paid" && order.Status != "paid" {
		s.sendOrderConfirmation(record.Name, order)
	}
	order.Status = status
	return orderPayload(order), nil
}

func (s *Service) websiteOrder(ctx context.Context, websiteID, orderID string) (store.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Order{}, domainError(http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
		}
		return store.Order{}, err
	}
	if order.WebsiteID != websiteID {
		return store.Order{}, domainError(http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
	}
	return order, nil
}

// orderItemSnapshot is the per-line record frozen into the order at
// checkout time.
type orderItemSnapshot struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"priceCents"`
}

// CreateCheckout is the public storefront entry point: it prices the cart
// against the live catalog, freezes the line items into an order and asks
// the payment function for a provider checkout session.
func (s *Service) CreateCheckout(ctx context.Context, websiteID string, input CheckoutInput) (map[string]any, error) {
	record, err := s.store.GetWebsite(ctx, websiteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
		}
		return nil, err
	}
	if !record.Published {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
	}
	if s.payments == nil {
		return nil, domainError(http.StatusServiceUnavailable, "PAYMENTS_UNAVAILABLE", "Payments are not configured", nil)
	}
	if !billing.Configured(record) {
		return nil, domainError(http.StatusUnprocessableEntity, "PAYMENTS_NOT_CONFIGURED", "This site does not accept payments", nil)
	}
	if len(input.Items) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "items are required", nil)
	}

	var total int64
	currency := ""
	snapshot := make([]orderItemSnapshot, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "quantity must be positive", map[string]any{"productId": item.ProductID})
		}
		product, err := s.store.GetProduct(ctx, item.ProductID)
		if err != nil || product.WebsiteID != websiteID || !product.Active {
			return nil, domainError(http.StatusUnprocessableEntity, "INVALID_ITEM", "product is not available", map[string]any{"productId": item.ProductID})
		}
		if currency == "" {
			currency = product.Currency
		} else if currency != product.Currency {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "cart mixes currencies", nil)
		}
		total += product.PriceCents * int64(item.Quantity)
		snapshot = append(snapshot, orderItemSnapshot{
			ProductID:  product.ID,
			Name:       product.Name,
			Quantity:   item.Quantity,
			PriceCents: product.PriceCents,
		})
	}

	itemsRaw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}
	provider, _, _ := billing.ProviderFor(record)
	order := store.Order{
		ID:            util.NewID("ord"),
		WebsiteID:     websiteID,
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		Items:         itemsRaw,
		TotalCents:    total,
		Currency:      currency,
		Status:        "pending",
		Provider:      provider,
	}

	checkout, err := s.payments.InitiateCheckout(ctx, record, order, input.SuccessURL, input.CancelURL)
	if err != nil {
		return nil, domainError(http.StatusBadGateway, "CHECKOUT_FAILED", "Could not start checkout", nil)
	}
	order.ProviderRef = checkout.SessionID
	if err := s.store.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	return map[string]any{
		"orderId":     order.ID,
		"provider":    checkout.Provider,
		"checkoutUrl": checkout.CheckoutURL,
	}, nil
}

func (s *Service) sendOrderConfirmation(siteName string, order store.Order) {
	if !s.SMTPConfigured() || order.CustomerEmail == "" {
		return
	}
	var items []orderItemSnapshot
	if err := json.Unmarshal(order.Items, &items); err != nil {
		log.Printf("app: parse order items for %s: %v", order.ID, err)
		return
	}
	data := email.OrderConfirmationData{
		SiteName:     siteName,
		CustomerName: order.CustomerEmail,
		OrderID:      order.ID,
		Total:        formatPrice(order.TotalCents, order.Currency),
	}
	for _, item := range items {
		data.Items = append(data.Items, email.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    formatPrice(item.PriceCents, order.Currency),
		})
	}
	go func() {
		if err := s.email.SendOrderConfirmationEmail(order.CustomerEmail, data); err != nil {
			log.Printf("app: order confirmation for %s: %v", order.ID, err)
		}
	}()
}

// --- search ---

func (s *Service) Search(ctx context.Context, sess Session, text, filterType, websiteID string, limit, offset int) (map[string]any, error) {
	switch filterType {
	case "", string(search.ResultWebsite), string(search.ResultProduct):
	default:
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown result type", map[string]any{"type": filterType})
	}
	if s.search == nil {
		return map[string]any{"results": []any{}, "total": 0, "query": text}, nil
	}
	resp := s.search.Search(search.Query{
		Text:            text,
		FilterType:      search.ResultType(filterType),
		FilterOwnerID:   sess.UserID,
		FilterWebsiteID: websiteID,
		Limit:           limit,
		Offset:          offset,
	})
	return map[string]any{"results": resp.Results, "total": resp.Total, "query": resp.Query}, nil
}

// --- uploads ---

func (s *Service) UploadAsset(ctx context.Context, sess Session, websiteID, filename, contentType string, r io.Reader, size int64) (map[string]any, error) {
	if _, err := s.ownedWebsite(ctx, sess, websiteID); err != nil {
		return nil, err
	}
	if s.assets == nil {
		return nil, domainError(http.StatusServiceUnavailable, "UPLOADS_UNAVAILABLE", "Object storage is not configured", nil)
	}
	url, err := s.assets.Upload(ctx, websiteID, filename, contentType, r, size)
	if err != nil {
		return nil, fmt.Errorf("upload asset: %w", err)
	}
	return map[string]any{"url": url}, nil
}

// --- helpers ---

// ownedWebsite loads a website and enforces ownership. A site that exists
// but belongs to someone else reads as not found, so site IDs leak
// nothing.
func (s *Service) ownedWebsite(ctx context.Context, sess Session, websiteID string) (store.Website, error) {
	record, err := s.store.GetWebsite(ctx, websiteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Website{}, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
		}
		return store.Website{}, err
	}
	if record.OwnerID != sess.UserID {
		return store.Website{}, domainError(http.StatusNotFound, "NOT_FOUND", "Website not found", nil)
	}
	return record, nil
}

func (s *Service) indexWebsite(w store.Website) {
	if s.search == nil {
		return
	}
	s.search.IndexWebsite(search.WebsiteRecord{
		ID:        w.ID,
		Name:      w.Name,
		OwnerID:   w.OwnerID,
		Published: w.Published,
	})
}

func (s *Service) indexProduct(p store.Product, ownerID string) {
	if s.search == nil {
		return
	}
	s.search.IndexProduct(search.ProductRecord{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		WebsiteID:   p.WebsiteID,
		OwnerID:     ownerID,
		Active:      p.Active,
	})
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if input.PriceCents < 0 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "price must not be negative", nil)
	}
	return nil
}

func websiteSummary(w store.Website) map[string]any {
	return map[string]any{
		"id":         w.ID,
		"name":       w.Name,
		"published":  w.Published,
		"previewUrl": w.PreviewURL,
		"updatedAt":  w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func builderPayload(data *site.WebsiteData, templateOffer bool) map[string]any {
	return map[string]any{
		"id":            data.ID,
		"name":          data.Name,
		"published":     data.Published,
		"pages":         data.Settings.Pages,
		"pagesContent":  data.Settings.PagesContent,
		"pagesSettings": data.Settings.PagesSettings,
		"templateOffer": templateOffer,
	}
}

func revisionPayload(info revisions.RevisionInfo) map[string]any {
	return map[string]any{
		"hash":      info.Hash,
		"message":   info.Message,
		"author":    info.Author,
		"createdAt": info.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func productPayload(p store.Product) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"websiteId":   p.WebsiteID,
		"name":        p.Name,
		"description": p.Description,
		"priceCents":  p.PriceCents,
		"currency":    p.Currency,
		"imageUrl":    p.ImageURL,
		"active":      p.Active,
	}
}

func orderPayload(o store.Order) map[string]any {
	var items json.RawMessage
	if len(o.Items) > 0 {
		items = json.RawMessage(o.Items)
	} else {
		items = json.RawMessage("[]")
	}
	return map[string]any{
		"id":            o.ID,
		"websiteId":     o.WebsiteID,
		"customerEmail": o.CustomerEmail,
		"items":         items,
		"totalCents":    o.TotalCents,
		"currency":      o.Currency,
		"status":        o.Status,
		"provider":      o.Provider,
		"providerRef":   o.ProviderRef,
		"createdAt":     o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func limitsPayload(l billing.Limits) map[string]any {
	return map[string]any{
		"maxWebsites":     l.MaxWebsites,
		"maxPages":        l.MaxPages,
		"maxProducts":     l.MaxProducts,
		"canSellProducts": l.CanSellProducts,
		"canUseRevisions": l.CanUseRevisions,
	}
}

func formatPrice(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, currency)
}

func ensureHomeFlag(pages []site.Page) {
	for _, p := range pages {
		if p.IsHomePage {
			return
		}
	}
	if len(pages) > 0 {
		pages[0].IsHomePage = true
	}
}

func ensurePageMaps(settings *site.Settings) {
	if settings.PagesContent == nil {
		settings.PagesContent = map[string][]element.BuilderElement{}
	}
	if settings.PagesSettings == nil {
		settings.PagesSettings = map[string]site.PageSettings{}
	}
}

func uniqueSlug(base string, pages []site.Page, skipID string) string {
	if base == "" {
		base = "page"
	}
	taken := map[string]struct{}{}
	for _, p := range pages {
		if p.ID == skipID {
			continue
		}
		taken[p.Slug] = struct{}{}
	}
	if _, exists := taken[base]; !exists {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, exists := taken[candidate]; !exists {
			return candidate
		}
	}
}

// memoryVisited is the in-process fallback for the visited marker when
// Redis is not configured. Markers do not survive a restart, so the
// template offer may reappear; the emptiness check still prevents it from
// clobbering real content.
type memoryVisited struct {
	mu      sync.Mutex
	visited map[string]struct{}
}

func newMemoryVisited() *memoryVisited {
	return &memoryVisited{visited: map[string]struct{}{}}
}

func (m *memoryVisited) IsVisited(_ context.Context, userID, websiteID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.visited[userID+"|"+websiteID]
	return ok, nil
}

func (m *memoryVisited) MarkVisited(_ context.Context, userID, websiteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visited[userID+"|"+websiteID] = struct{}{}
	return nil
}
