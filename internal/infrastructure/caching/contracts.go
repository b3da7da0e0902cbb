// Package caching implements the read-through entity stores at the heart
// of the service: Article, Session and User, all built on one generic
// cache-aside engine with request coalescing on both the persistent-layer
// load and the cold-miss upstream fetch, stale-while-revalidate refresh and
// short-TTL degraded caching during upstream outages.
package caching

import (
	"context"
	"time"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/upstream"
)

// ContentTagger provides article annotations.
type ContentTagger interface {
	GetTags(ctx context.Context, articleID string) ([]entities.Annotation, error)
}

// SessionValidator resolves a session ID to its owning user.
type SessionValidator interface {
	GetSessionData(ctx context.Context, sessionID string) (*entities.SessionData, error)
}

// ProfileFetcher provides basic user profile data.
type ProfileFetcher interface {
	GetUserData(ctx context.Context, uuid string) (*entities.BasicUserInfo, error)
}

// IdentityResolver maps between canonical UUIDs and legacy user IDs.
type IdentityResolver interface {
	GetUserMapping(ctx context.Context, id string) (*upstream.UserMapping, error)
}

// SiteResolver maps an article to its comment-platform site.
type SiteResolver interface {
	GetSiteID(ctx context.Context, articleID string) (string, error)
}

// CommentPlatform is the Livefyre surface the stores consume.
type CommentPlatform interface {
	CollectionExists(ctx context.Context, siteID, articleID string) (bool, error)
	CollectionDetails(cfg upstream.CollectionConfig) (*entities.CollectionDetails, error)
	AuthToken(userID, displayName string, expires time.Time) (string, error)
	ValidateToken(token string) bool
}

// Config carries the freshness policy shared by the stores.
type Config struct {
	ArticleTTL                time.Duration
	AuthTokenTTL              time.Duration
	SessionValidity           time.Duration
	SessionValidityRemembered time.Duration
	SessionFloor              time.Duration

	// RefreshTimeout bounds background refresh-and-upsert work, which runs
	// detached from the request that observed the stale value.
	RefreshTimeout time.Duration
}
