package caching

import (
	"context"
	"sync"
	"time"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/documents"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/security"
)

// sessionDoc is a session's persisted shape. expireAt is written once, on
// first insert, and drives the store-level document expiry. A present
// authMetadata with nil data records "valid session, no pseudonym chosen",
// which must be cached like any positive answer.
type sessionDoc struct {
	ID           string                         `bson:"_id"`
	SessionData  *entities.SessionData          `bson:"sessionData,omitempty"`
	ExpireAt     time.Time                      `bson:"expireAt,omitempty"`
	AuthMetadata *Timed[*entities.AuthMetadata] `bson:"authMetadata,omitempty"`
}

// SessionStore caches session ownership and comment-platform auth metadata
// for one session ID. The cached pseudonym is encrypted at rest and
// decrypted once, when first read into memory.
type SessionStore struct {
	*entity[sessionDoc]

	sessions SessionValidator
	platform CommentPlatform
	cipher   *security.Cipher
	users    func(id string) *UserStore
	refresh  *RefreshLock
	flights  *FlightGroup
	cfg      Config

	// decryptedFor marks the loaded document whose pseudonym has already
	// been decrypted in place, so decryption runs once per load.
	decryptedFor *sessionDoc
}

func newSessionStore(id string, provider documents.Provider, logger *logging.ChanneledLogger,
	sessions SessionValidator, platform CommentPlatform, cipher *security.Cipher,
	users func(id string) *UserStore, refresh *RefreshLock, flights *FlightGroup, cfg Config) *SessionStore {
	return &SessionStore{
		entity:   newEntity[sessionDoc](id, documents.SessionsCollection, provider, logger),
		sessions: sessions,
		platform: platform,
		cipher:   cipher,
		users:    users,
		refresh:  refresh,
		flights:  flights,
		cfg:      cfg,
	}
}

// ID returns the session ID the store is scoped to.
func (s *SessionStore) ID() string { return s.id }

// SessionData resolves the session to its owning user, caching the result
// for the session's remaining validity window. An unknown session returns a
// not-found error and is never cached.
func (s *SessionStore) SessionData(ctx context.Context) (*entities.SessionData, error) {
	if s.id == "" {
		return nil, errors.InvalidInput("session ID is required")
	}

	doc, err := s.load(ctx)
	if err == nil && doc != nil && doc.SessionData != nil {
		return doc.SessionData, nil
	}

	v, err := s.flights.Do(ctx, documents.SessionsCollection+":"+s.id+":data", func() (any, error) {
		data, err := s.sessions.GetSessionData(ctx, s.id)
		if err != nil {
			return nil, err
		}
		expireAt := entities.SessionExpiry(data.CreationTime, data.RememberMe,
			s.cfg.SessionValidity, s.cfg.SessionValidityRemembered, s.cfg.SessionFloor, time.Now())
		s.upsert(ctx,
			map[string]any{"sessionData": data},
			map[string]any{"expireAt": expireAt})
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entities.SessionData), nil
}

// AuthMetadata returns the comment-platform auth bundle for the session's
// user. A nil result with a nil error means the session is valid but the
// user has no pseudonym, so commenting stays read-only. Stale metadata is
// served while a background refresh regenerates it.
func (s *SessionStore) AuthMetadata(ctx context.Context) (*entities.AuthMetadata, error) {
	if s.id == "" {
		return nil, errors.InvalidInput("session ID is required")
	}

	doc, err := s.load(ctx)
	if err == nil && doc != nil && doc.AuthMetadata != nil {
		cached := *doc.AuthMetadata
		// A cached token that no longer verifies (key rotation, clock skew)
		// is regenerated rather than handed to the widget.
		if cached.Data == nil || s.platform.ValidateToken(cached.Data.Token) {
			if cached.Data != nil {
				if derr := s.decryptPseudonym(doc); derr != nil {
					return nil, derr
				}
			}
			if cached.Expired(time.Now()) {
				s.refreshAsync()
			}
			return cached.Data, nil
		}
	}

	v, err := s.flights.Do(ctx, documents.SessionsCollection+":"+s.id+":auth", func() (any, error) {
		return s.generateAuthMetadata(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entities.AuthMetadata), nil
}

// decryptPseudonym decrypts the at-rest pseudonym in place. The loaded
// document then carries plaintext for its lifetime; a reload after an
// upsert brings a fresh encrypted copy and decrypts again.
func (s *SessionStore) decryptPseudonym(doc *sessionDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decryptedFor == doc {
		return nil
	}
	plain, err := s.cipher.Decrypt(doc.AuthMetadata.Data.Pseudonym)
	if err != nil {
		return errors.Wrap(errors.KindUnclassified, "decrypting cached pseudonym", err)
	}
	doc.AuthMetadata.Data.Pseudonym = plain
	s.decryptedFor = doc
	return nil
}

// generateAuthMetadata builds the auth bundle from scratch: validate the
// session, look up the user's pseudonym, then mint the platform token and
// load email preferences concurrently.
func (s *SessionStore) generateAuthMetadata(ctx context.Context) (*entities.AuthMetadata, error) {
	data, err := s.SessionData(ctx)
	if err != nil {
		return nil, err
	}

	user := s.users(data.UUID)
	pseudonym, err := user.Pseudonym(ctx)
	if err != nil {
		return nil, err
	}
	if pseudonym == "" {
		// Valid session, no pseudonym. Cached so repeated widget loads do
		// not hammer the user store.
		s.upsert(ctx, map[string]any{
			"authMetadata": Timed[*entities.AuthMetadata]{Expires: time.Now().Add(s.cfg.AuthTokenTTL)},
		}, nil)
		return nil, nil
	}

	expires := time.Now().Add(s.cfg.AuthTokenTTL)

	var (
		wg       sync.WaitGroup
		token    string
		tokenErr error
		prefs    *entities.EmailPreferences
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		userID, err := user.PreferredID(ctx)
		if err != nil {
			tokenErr = err
			return
		}
		token, tokenErr = s.platform.AuthToken(userID, pseudonym, expires)
	}()
	go func() {
		defer wg.Done()
		// Preferences are decoration on the auth bundle; their failure
		// never blocks commenting.
		p, err := user.EmailPreferences(ctx)
		if err != nil {
			s.logger.Auth().Warn("Email preferences unavailable for auth metadata",
				"sessionId", s.id, "error", err)
			return
		}
		prefs = p
	}()
	wg.Wait()
	if tokenErr != nil {
		return nil, tokenErr
	}

	meta := &entities.AuthMetadata{
		Token:            token,
		Expires:          expires,
		Pseudonym:        pseudonym,
		EmailPreferences: prefs,
	}

	encrypted, err := s.cipher.Encrypt(pseudonym)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnclassified, "encrypting pseudonym for cache", err)
	}
	stored := *meta
	stored.Pseudonym = encrypted
	s.upsert(ctx, map[string]any{
		"authMetadata": Timed[*entities.AuthMetadata]{Data: &stored, Expires: expires},
	}, nil)

	return meta, nil
}

func (s *SessionStore) refreshAsync() {
	key := documents.SessionsCollection + ":" + s.id + ":auth"
	if !s.refresh.TryLock(key) {
		return
	}
	go func() {
		defer s.refresh.Unlock(key)
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout)
		defer cancel()
		if _, err := s.generateAuthMetadata(ctx); err != nil {
			s.logger.Auth().Warn("Background auth metadata refresh failed",
				"sessionId", s.id, "error", err)
		}
	}()
}

// Destroy removes the cached session entirely. Called when the user changes
// their pseudonym so the next read regenerates the auth bundle.
func (s *SessionStore) Destroy(ctx context.Context) error {
	return s.destroy(ctx)
}
