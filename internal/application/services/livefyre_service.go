// Package services provides application-level services that orchestrate the
// entity stores and shape their results for the presentation layer.
package services

import (
	"context"
	"sync"
	"time"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/caching"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
)

// CommentsAuth is the auth bundle handed to the comment widget. ServicesUp
// is false when the bundle could not be assembled because a backing service
// was down; the widget then degrades to read-only.
type CommentsAuth struct {
	ServicesUp  bool                       `json:"servicesUp"`
	Pseudonym   bool                       `json:"pseudonym"`
	Token       string                     `json:"token,omitempty"`
	Expires     *time.Time                 `json:"expires,omitempty"`
	DisplayName string                     `json:"displayName,omitempty"`
	Settings    *entities.EmailPreferences `json:"settings,omitempty"`
}

// InitData is the combined payload for widget initialization: collection
// details plus, when a session was presented, the auth bundle.
type InitData struct {
	Init *entities.CollectionDetails `json:"init"`
	Auth *CommentsAuth               `json:"auth,omitempty"`
}

// LivefyreService orchestrates the comment-platform read paths.
type LivefyreService struct {
	stores *caching.Factory
	logger *logging.ChanneledLogger
}

// NewLivefyreService creates the comment-platform application service.
func NewLivefyreService(stores *caching.Factory, logger *logging.ChanneledLogger) *LivefyreService {
	return &LivefyreService{stores: stores, logger: logger}
}

// InitData assembles collection details and auth in parallel. The detail
// branch is authoritative: its failure fails the call. The auth branch is
// soft: its failure yields servicesUp=false so the page still renders
// comments read-only. Neither branch cancels the other.
func (s *LivefyreService) InitData(ctx context.Context, articleID, title, articleURL, sessionID string) (*InitData, error) {
	var (
		wg         sync.WaitGroup
		details    *entities.CollectionDetails
		detailsErr error
		auth       *CommentsAuth
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		details, detailsErr = s.stores.Article(articleID).CollectionDetails(ctx, title, articleURL)
	}()

	if sessionID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			auth = s.commentsAuthSoft(ctx, sessionID)
		}()
	}
	wg.Wait()

	if detailsErr != nil {
		return nil, detailsErr
	}
	return &InitData{Init: details, Auth: auth}, nil
}

// commentsAuthSoft never fails: an invalid session reads as "not signed
// in", an outage as servicesUp=false.
func (s *LivefyreService) commentsAuthSoft(ctx context.Context, sessionID string) *CommentsAuth {
	auth, err := s.CommentsAuth(ctx, sessionID)
	switch {
	case err == nil:
		return auth
	case errors.IsNotFound(err) || errors.IsInvalidInput(err):
		return &CommentsAuth{ServicesUp: true}
	default:
		s.logger.Auth().Warn("Auth bundle unavailable during widget init",
			"sessionId", sessionID, "error", err)
		return &CommentsAuth{ServicesUp: false}
	}
}

// CommentsAuth resolves the session to its auth bundle. An unknown session
// surfaces as a not-found error; a valid session without a pseudonym yields
// a bundle with Pseudonym=false and no token.
func (s *LivefyreService) CommentsAuth(ctx context.Context, sessionID string) (*CommentsAuth, error) {
	meta, err := s.stores.Session(sessionID).AuthMetadata(ctx)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return &CommentsAuth{ServicesUp: true}, nil
	}
	expires := meta.Expires
	return &CommentsAuth{
		ServicesUp:  true,
		Pseudonym:   true,
		Token:       meta.Token,
		Expires:     &expires,
		DisplayName: meta.Pseudonym,
		Settings:    meta.EmailPreferences,
	}, nil
}

// CollectionDetails returns the signed collection metadata for an article.
func (s *LivefyreService) CollectionDetails(ctx context.Context, articleID, title, articleURL string) (*entities.CollectionDetails, error) {
	return s.stores.Article(articleID).CollectionDetails(ctx, title, articleURL)
}

// CollectionExists reports whether the article's collection has been
// created on the platform.
func (s *LivefyreService) CollectionExists(ctx context.Context, articleID string) (bool, error) {
	return s.stores.Article(articleID).CollectionExists(ctx)
}

// Tags returns an article's merged tag set.
func (s *LivefyreService) Tags(ctx context.Context, articleID, articleURL string) ([]string, error) {
	return s.stores.Article(articleID).Tags(ctx, articleURL)
}
