package caching

import (
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/documents"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/security"
)

// Factory builds request-scoped entity stores over shared infrastructure.
// Stores memoize their loaded document, so a fresh store per request keeps
// the in-memory lifetime bounded by the request.
type Factory struct {
	provider documents.Provider
	cipher   *security.Cipher
	logger   *logging.ChanneledLogger

	capi     ContentTagger
	sessions SessionValidator
	profiles ProfileFetcher
	identity IdentityResolver
	sites    SiteResolver
	platform CommentPlatform

	// refresh and flights are shared by every store the factory builds:
	// concurrent requests that all observe the same stale value trigger one
	// refresh, and concurrent requests that all miss the same cold field
	// cost one upstream fetch.
	refresh *RefreshLock
	flights *FlightGroup

	cfg Config
}

// Deps collects everything the stores depend on.
type Deps struct {
	Provider documents.Provider
	Cipher   *security.Cipher
	Logger   *logging.ChanneledLogger

	ContentAPI ContentTagger
	Sessions   SessionValidator
	Profiles   ProfileFetcher
	Identity   IdentityResolver
	Sites      SiteResolver
	Platform   CommentPlatform
}

// NewFactory creates a store factory.
func NewFactory(deps Deps, cfg Config) *Factory {
	return &Factory{
		provider: deps.Provider,
		cipher:   deps.Cipher,
		logger:   deps.Logger,
		capi:     deps.ContentAPI,
		sessions: deps.Sessions,
		profiles: deps.Profiles,
		identity: deps.Identity,
		sites:    deps.Sites,
		platform: deps.Platform,
		refresh:  NewRefreshLock(),
		flights:  NewFlightGroup(),
		cfg:      cfg,
	}
}

// Article returns a store scoped to one article ID.
func (f *Factory) Article(id string) *ArticleStore {
	return newArticleStore(id, f.provider, f.logger, f.capi, f.platform, f.sites, f.refresh, f.flights, f.cfg)
}

// Session returns a store scoped to one session ID.
func (f *Factory) Session(id string) *SessionStore {
	return newSessionStore(id, f.provider, f.logger, f.sessions, f.platform, f.cipher, f.User, f.refresh, f.flights, f.cfg)
}

// User returns a store scoped to one user identifier, canonical or legacy.
func (f *Factory) User(id string) *UserStore {
	return newUserStore(id, f.provider, f.logger, f.identity, f.profiles, f.cipher, f.flights)
}
