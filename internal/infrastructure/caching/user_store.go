package caching

import (
	"context"

	"github.com/google/uuid"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/documents"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/security"
)

// userDoc is a user's persisted shape, keyed by canonical UUID. lfUserId is
// the platform-facing ID: the legacy ID when the user has one, the UUID
// otherwise. Pseudonym, email and names are encrypted at rest; a present
// email field, even when it decrypts to empty, means the profile was
// fetched.
type userDoc struct {
	ID               string                     `bson:"_id"`
	UUID             string                     `bson:"uuid"`
	LfUserID         string                     `bson:"lfUserId,omitempty"`
	Pseudonym        string                     `bson:"pseudonym,omitempty"`
	EmailPreferences *entities.EmailPreferences `bson:"emailPreferences,omitempty"`
	Email            *string                    `bson:"email,omitempty"`
	FirstName        string                     `bson:"firstName,omitempty"`
	LastName         string                     `bson:"lastName,omitempty"`
}

// UserStore caches user identity, pseudonym, email preferences and basic
// profile data. It accepts either a canonical UUID or a legacy user ID and
// resolves to one document keyed by UUID, so both lookups land on the same
// cached entity.
type UserStore struct {
	*entity[userDoc]

	rawID    string
	identity IdentityResolver
	profiles ProfileFetcher
	cipher   *security.Cipher
	flights  *FlightGroup

	// Decryption marks, keyed by loaded document, so each encrypted field
	// is decrypted in place once per load.
	pseudonymPlainFor *userDoc
	profilePlainFor   *userDoc
}

func newUserStore(rawID string, provider documents.Provider, logger *logging.ChanneledLogger,
	identity IdentityResolver, profiles ProfileFetcher, cipher *security.Cipher, flights *FlightGroup) *UserStore {
	s := &UserStore{
		entity:   newEntity[userDoc]("", documents.UsersCollection, provider, logger),
		rawID:    rawID,
		identity: identity,
		profiles: profiles,
		cipher:   cipher,
		flights:  flights,
	}
	s.find = func(ctx context.Context, coll documents.Collection) (*userDoc, error) {
		var doc userDoc
		var err error
		if _, parseErr := uuid.Parse(s.rawID); parseErr == nil {
			err = coll.FindOne(ctx, s.rawID, &doc)
		} else {
			err = coll.FindOneByField(ctx, "lfUserId", s.rawID, &doc)
		}
		if err != nil {
			return nil, err
		}
		return &doc, nil
	}
	return s
}

// ensure loads the user's document, resolving the raw ID via the identity
// service and creating the document on a cache miss. The identity mapping is
// cached in both directions: the document is keyed by UUID and indexed by
// lfUserId. A document-store outage falls through to the identity service.
func (s *UserStore) ensure(ctx context.Context) (*userDoc, error) {
	if s.rawID == "" {
		return nil, errors.InvalidInput("user ID is required")
	}

	doc, err := s.load(ctx)
	if err == nil && doc != nil {
		s.setID(doc.ID)
		return doc, nil
	}

	v, merr := s.flights.Do(ctx, documents.UsersCollection+":"+s.rawID+":resolve", func() (any, error) {
		mapping, err := s.identity.GetUserMapping(ctx, s.rawID)
		if err != nil {
			return nil, err
		}
		lfUserID := mapping.ERightsID
		if lfUserID == "" {
			lfUserID = mapping.UUID
		}
		s.setID(mapping.UUID)
		s.upsert(ctx, map[string]any{
			"uuid":     mapping.UUID,
			"lfUserId": lfUserID,
		}, nil)
		return &userDoc{ID: mapping.UUID, UUID: mapping.UUID, LfUserID: lfUserID}, nil
	})
	if merr != nil {
		return nil, merr
	}

	resolved := v.(*userDoc)
	s.setID(resolved.ID)
	return resolved, nil
}

// UUID returns the user's canonical UUID.
func (s *UserStore) UUID(ctx context.Context) (string, error) {
	doc, err := s.ensure(ctx)
	if err != nil {
		return "", err
	}
	return doc.UUID, nil
}

// PreferredID returns the platform-facing user ID: the legacy ID when the
// user has one, the UUID otherwise.
func (s *UserStore) PreferredID(ctx context.Context) (string, error) {
	doc, err := s.ensure(ctx)
	if err != nil {
		return "", err
	}
	if doc.LfUserID != "" {
		return doc.LfUserID, nil
	}
	return doc.UUID, nil
}

// Pseudonym returns the user's display name, or "" when none is set. The
// stored value is decrypted once per store instance.
func (s *UserStore) Pseudonym(ctx context.Context) (string, error) {
	doc, err := s.ensure(ctx)
	if err != nil {
		return "", err
	}
	if doc.Pseudonym == "" {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pseudonymPlainFor != doc {
		plain, derr := s.cipher.Decrypt(doc.Pseudonym)
		if derr != nil {
			return "", errors.Wrap(errors.KindUnclassified, "decrypting stored pseudonym", derr)
		}
		doc.Pseudonym = plain
		s.pseudonymPlainFor = doc
	}
	return doc.Pseudonym, nil
}

// SetPseudonym normalizes and stores the display name, encrypted at rest.
// A pseudonym that normalizes to empty is rejected.
func (s *UserStore) SetPseudonym(ctx context.Context, pseudonym string) error {
	normalized := entities.NormalizePseudonym(pseudonym)
	if normalized == "" {
		return errors.BadRequest("pseudonym must not be empty")
	}

	if _, err := s.ensure(ctx); err != nil {
		return err
	}
	encrypted, err := s.cipher.Encrypt(normalized)
	if err != nil {
		return errors.Wrap(errors.KindUnclassified, "encrypting pseudonym", err)
	}
	if err := s.upsert(ctx, map[string]any{"pseudonym": encrypted}, nil); err != nil {
		return errors.ServiceUnavailable("storing pseudonym", err)
	}
	return nil
}

// RemovePseudonym clears the display name, returning the user to read-only
// commenting.
func (s *UserStore) RemovePseudonym(ctx context.Context) error {
	if _, err := s.ensure(ctx); err != nil {
		return err
	}
	if err := s.upsert(ctx, map[string]any{"pseudonym": ""}, nil); err != nil {
		return errors.ServiceUnavailable("removing pseudonym", err)
	}
	return nil
}

// EmailPreferences returns the user's notification settings, or nil when
// none were ever set.
func (s *UserStore) EmailPreferences(ctx context.Context) (*entities.EmailPreferences, error) {
	doc, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return doc.EmailPreferences, nil
}

// SetEmailPreferences merges the given preferences into the stored set.
// Only the fields present in prefs are written; absent fields keep their
// stored values.
func (s *UserStore) SetEmailPreferences(ctx context.Context, prefs *entities.EmailPreferences) error {
	if prefs == nil || prefs.IsEmpty() {
		return errors.BadRequest("at least one email preference must be provided")
	}
	if err := prefs.Validate(); err != nil {
		return err
	}
	if _, err := s.ensure(ctx); err != nil {
		return err
	}

	set := make(map[string]any)
	if prefs.Comments != "" {
		set["emailPreferences.comments"] = prefs.Comments
	}
	if prefs.Likes != "" {
		set["emailPreferences.likes"] = prefs.Likes
	}
	if prefs.Replies != "" {
		set["emailPreferences.replies"] = prefs.Replies
	}
	if prefs.AutoFollow != nil {
		set["emailPreferences.autoFollow"] = *prefs.AutoFollow
	}
	if err := s.upsert(ctx, set, nil); err != nil {
		return errors.ServiceUnavailable("storing email preferences", err)
	}
	return nil
}

// BasicInfo returns the user's profile data, fetched lazily from the
// profile service on first access. Email and names are encrypted at rest;
// a present email field, even empty, means the profile was already fetched
// and is not refetched.
func (s *UserStore) BasicInfo(ctx context.Context) (*entities.BasicUserInfo, error) {
	doc, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}

	if doc.Email != nil {
		if derr := s.decryptProfile(doc); derr != nil {
			return nil, derr
		}
		return &entities.BasicUserInfo{
			Email:     *doc.Email,
			FirstName: doc.FirstName,
			LastName:  doc.LastName,
		}, nil
	}

	v, err := s.flights.Do(ctx, documents.UsersCollection+":"+doc.UUID+":profile", func() (any, error) {
		info, err := s.profiles.GetUserData(ctx, doc.UUID)
		if err != nil {
			if errors.IsNotFound(err) {
				// No profile exists. Persist an empty marker so the profile
				// service is not asked again.
				if serr := s.storeBasicInfo(ctx, &entities.BasicUserInfo{}); serr != nil {
					return nil, serr
				}
				return &entities.BasicUserInfo{}, nil
			}
			return nil, err
		}
		if serr := s.storeBasicInfo(ctx, info); serr != nil {
			return nil, serr
		}
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entities.BasicUserInfo), nil
}

// decryptProfile decrypts the at-rest profile fields in place, once per
// loaded document.
func (s *UserStore) decryptProfile(doc *userDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profilePlainFor == doc {
		return nil
	}
	email, err := s.cipher.Decrypt(*doc.Email)
	if err != nil {
		return errors.Wrap(errors.KindUnclassified, "decrypting stored email", err)
	}
	first, last := doc.FirstName, doc.LastName
	if first != "" {
		if first, err = s.cipher.Decrypt(first); err != nil {
			return errors.Wrap(errors.KindUnclassified, "decrypting stored first name", err)
		}
	}
	if last != "" {
		if last, err = s.cipher.Decrypt(last); err != nil {
			return errors.Wrap(errors.KindUnclassified, "decrypting stored last name", err)
		}
	}
	*doc.Email = email
	doc.FirstName, doc.LastName = first, last
	s.profilePlainFor = doc
	return nil
}

// UpdateBasicInfo stores profile data pushed by an upstream notification,
// replacing whatever was cached.
func (s *UserStore) UpdateBasicInfo(ctx context.Context, info *entities.BasicUserInfo) error {
	if info == nil {
		return errors.BadRequest("user info must be provided")
	}
	if _, err := s.ensure(ctx); err != nil {
		return err
	}
	if err := s.storeBasicInfo(ctx, info); err != nil {
		return errors.ServiceUnavailable("storing user info", err)
	}
	return nil
}

// storeBasicInfo persists the profile with every field encrypted, the empty
// ones included, so the stored document never mixes ciphertext and plain.
func (s *UserStore) storeBasicInfo(ctx context.Context, info *entities.BasicUserInfo) error {
	email, err := s.cipher.Encrypt(info.Email)
	if err != nil {
		return errors.Wrap(errors.KindUnclassified, "encrypting email", err)
	}
	first, err := s.cipher.Encrypt(info.FirstName)
	if err != nil {
		return errors.Wrap(errors.KindUnclassified, "encrypting first name", err)
	}
	last, err := s.cipher.Encrypt(info.LastName)
	if err != nil {
		return errors.Wrap(errors.KindUnclassified, "encrypting last name", err)
	}
	return s.upsert(ctx, map[string]any{
		"email":     email,
		"firstName": first,
		"lastName":  last,
	}, nil)
}
