package services

import (
	"context"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/caching"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
)

// UserService orchestrates pseudonym, preference and profile operations.
// Mutations that feed the cached auth bundle destroy the session record so
// the next auth fetch regenerates the token with current data.
type UserService struct {
	stores *caching.Factory
	logger *logging.ChanneledLogger
}

// NewUserService creates the user application service.
func NewUserService(stores *caching.Factory, logger *logging.ChanneledLogger) *UserService {
	return &UserService{stores: stores, logger: logger}
}

// resolveUser validates the session and returns a store for its owner.
func (s *UserService) resolveUser(ctx context.Context, sessionID string) (*caching.UserStore, *caching.SessionStore, error) {
	session := s.stores.Session(sessionID)
	data, err := session.SessionData(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.stores.User(data.UUID), session, nil
}

// Pseudonym returns the session owner's display name, "" when unset.
func (s *UserService) Pseudonym(ctx context.Context, sessionID string) (string, error) {
	user, _, err := s.resolveUser(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return user.Pseudonym(ctx)
}

// SetPseudonym stores a new display name for the session owner.
func (s *UserService) SetPseudonym(ctx context.Context, sessionID, pseudonym string) error {
	user, session, err := s.resolveUser(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := user.SetPseudonym(ctx, pseudonym); err != nil {
		return err
	}
	return s.invalidateSession(ctx, session)
}

// EmptyPseudonym removes the display name, returning the user to read-only
// commenting.
func (s *UserService) EmptyPseudonym(ctx context.Context, sessionID string) error {
	user, session, err := s.resolveUser(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := user.RemovePseudonym(ctx); err != nil {
		return err
	}
	return s.invalidateSession(ctx, session)
}

// UpdateEmailPreferences merges the given preferences into the stored set.
func (s *UserService) UpdateEmailPreferences(ctx context.Context, sessionID string, prefs *entities.EmailPreferences) error {
	user, session, err := s.resolveUser(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := user.SetEmailPreferences(ctx, prefs); err != nil {
		return err
	}
	// The auth bundle embeds the settings, so it is regenerated too.
	return s.invalidateSession(ctx, session)
}

// BasicInfo returns the session owner's profile data.
func (s *UserService) BasicInfo(ctx context.Context, sessionID string) (*entities.BasicUserInfo, error) {
	user, _, err := s.resolveUser(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return user.BasicInfo(ctx)
}

// UpdateBasicInfo stores profile data pushed for a user, identified by
// UUID or legacy ID. Used by upstream change notifications, not sessions.
func (s *UserService) UpdateBasicInfo(ctx context.Context, userID string, info *entities.BasicUserInfo) error {
	return s.stores.User(userID).UpdateBasicInfo(ctx, info)
}

func (s *UserService) invalidateSession(ctx context.Context, session *caching.SessionStore) error {
	if err := session.Destroy(ctx); err != nil {
		// The mutation itself succeeded; a failed invalidation only delays
		// the refreshed bundle until the cached one expires.
		s.logger.Auth().Warn("Session invalidation after user mutation failed",
			"sessionId", session.ID(), "error", err)
	}
	return nil
}
