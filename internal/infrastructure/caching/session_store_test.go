package caching

import (
	"context"
	"testing"
	"time"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/documents"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/upstream"
)

const (
	testSessionID = "z9y8x7w6v5u4t3s2r1q0"
	testUserUUID  = "7f8e9d0c-0000-0000-0000-000000000002"
)

func seedUserMapping(h *harness, erightsID string) {
	h.identity.mu.Lock()
	h.identity.mappings[testUserUUID] = &upstream.UserMapping{UUID: testUserUUID, ERightsID: erightsID}
	h.identity.mu.Unlock()
}

func seedSession(h *harness, rememberMe bool) {
	h.sessions.mu.Lock()
	h.sessions.data = &entities.SessionData{
		UUID:         testUserUUID,
		CreationTime: time.Now().Add(-time.Hour),
		RememberMe:   rememberMe,
	}
	h.sessions.mu.Unlock()
}

func sessionCollection(h *harness) *fakeCollection {
	return h.provider.collection(documents.SessionsCollection)
}

func TestSessionDataCachedWithExpiryWindow(t *testing.T) {
	h := newHarness(t)
	seedSession(h, false)

	before := time.Now()
	data, err := h.factory.Session(testSessionID).SessionData(context.Background())
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if data.UUID != testUserUUID {
		t.Fatalf("got owner %q, want %q", data.UUID, testUserUUID)
	}

	var doc sessionDoc
	raw, _ := sessionCollection(h).document(testSessionID)
	if err := decodeDoc(raw, &doc); err != nil {
		t.Fatalf("decoding stored session: %v", err)
	}
	// Created an hour ago with a 24h window: expireAt is 23h out.
	wantExpire := before.Add(23 * time.Hour)
	if doc.ExpireAt.Before(wantExpire.Add(-time.Minute)) || doc.ExpireAt.After(wantExpire.Add(time.Minute)) {
		t.Fatalf("expireAt %v, want about %v", doc.ExpireAt, wantExpire)
	}

	if _, err := h.factory.Session(testSessionID).SessionData(context.Background()); err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if got := h.sessions.callCount(); got != 1 {
		t.Fatalf("session API called %d times, want 1", got)
	}
}

func TestSessionExpiryNeverBelowFloor(t *testing.T) {
	cases := []struct {
		name       string
		rememberMe bool
		window     time.Duration
	}{
		{"plain session", false, 24 * time.Hour},
		{"remembered session", true, 4320 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			// A session created almost a full window ago would expire in
			// minutes; the floor keeps the cache entry usable.
			h.sessions.mu.Lock()
			h.sessions.data = &entities.SessionData{
				UUID:         testUserUUID,
				CreationTime: time.Now().Add(-tc.window + 10*time.Minute),
				RememberMe:   tc.rememberMe,
			}
			h.sessions.mu.Unlock()

			before := time.Now()
			if _, err := h.factory.Session(testSessionID).SessionData(context.Background()); err != nil {
				t.Fatalf("resolve: %v", err)
			}

			var doc sessionDoc
			raw, _ := sessionCollection(h).document(testSessionID)
			if err := decodeDoc(raw, &doc); err != nil {
				t.Fatalf("decoding stored session: %v", err)
			}
			// The floor, not some other validity window, decides the expiry.
			// The stored time has bson's millisecond precision, so the lower
			// bound must be truncated the same way.
			floor := before.Add(4 * time.Hour)
			if doc.ExpireAt.Before(floor.Truncate(time.Millisecond)) || doc.ExpireAt.After(floor.Add(time.Minute)) {
				t.Fatalf("expireAt %v, want about the floor %v", doc.ExpireAt, floor)
			}
		})
	}
}

func TestUnknownSessionNotCached(t *testing.T) {
	h := newHarness(t)
	h.sessions.mu.Lock()
	h.sessions.err = errors.NotFound("no such session")
	h.sessions.mu.Unlock()

	for i := 0; i < 2; i++ {
		if _, err := h.factory.Session(testSessionID).SessionData(context.Background()); !errors.IsNotFound(err) {
			t.Fatalf("attempt %d got %v, want not found", i, err)
		}
	}
	if _, ok := sessionCollection(h).document(testSessionID); ok {
		t.Fatal("unknown session was persisted")
	}
	if got := h.sessions.callCount(); got != 2 {
		t.Fatalf("session API called %d times, want a call per attempt", got)
	}
}

func TestAuthMetadataGeneratedAndEncryptedAtRest(t *testing.T) {
	h := newHarness(t)
	seedSession(h, false)
	seedUserMapping(h, "legacy-42")

	// Seed the user with an encrypted pseudonym, as a prior SetPseudonym
	// would have left it.
	encrypted, err := h.cipher.Encrypt("John Doe")
	if err != nil {
		t.Fatal(err)
	}
	h.provider.collection(documents.UsersCollection).seed(t, testUserUUID, userDoc{
		UUID: testUserUUID, LfUserID: "legacy-42", Pseudonym: encrypted,
	})

	meta, err := h.factory.Session(testSessionID).AuthMetadata(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if meta == nil {
		t.Fatal("got nil metadata for a user with a pseudonym")
	}
	if meta.Pseudonym != "John Doe" {
		t.Fatalf("got pseudonym %q, want plaintext", meta.Pseudonym)
	}
	if want := "token:legacy-42:John Doe"; meta.Token != want {
		t.Fatalf("got token %q, want %q", meta.Token, want)
	}

	// At rest the pseudonym is ciphertext.
	var doc sessionDoc
	raw, _ := sessionCollection(h).document(testSessionID)
	if err := decodeDoc(raw, &doc); err != nil {
		t.Fatalf("decoding stored session: %v", err)
	}
	stored := doc.AuthMetadata.Data.Pseudonym
	if stored == "John Doe" {
		t.Fatal("pseudonym persisted in plaintext")
	}
	if plain, err := h.cipher.Decrypt(stored); err != nil || plain != "John Doe" {
		t.Fatalf("stored pseudonym decrypts to %q (%v), want original", plain, err)
	}

	// A fresh store decrypts the cached bundle back to plaintext.
	cached, err := h.factory.Session(testSessionID).AuthMetadata(context.Background())
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if cached.Pseudonym != "John Doe" || cached.Token != meta.Token {
		t.Fatalf("cached read got %+v", cached)
	}
}

func TestAuthMetadataRejectedTokenRegenerated(t *testing.T) {
	h := newHarness(t)
	seedSession(h, false)
	seedUserMapping(h, "legacy-42")

	encrypted, err := h.cipher.Encrypt("John Doe")
	if err != nil {
		t.Fatal(err)
	}
	h.provider.collection(documents.UsersCollection).seed(t, testUserUUID, userDoc{
		UUID: testUserUUID, LfUserID: "legacy-42", Pseudonym: encrypted,
	})
	// A cached bundle signed before a key rotation: not yet expired, but its
	// token no longer verifies against the current key.
	sessionCollection(h).seed(t, testSessionID, sessionDoc{
		SessionData: &entities.SessionData{UUID: testUserUUID, CreationTime: time.Now().Add(-time.Hour)},
		AuthMetadata: &Timed[*entities.AuthMetadata]{
			Data:    &entities.AuthMetadata{Token: "signed-with-old-key", Pseudonym: encrypted},
			Expires: time.Now().Add(time.Hour),
		},
	})
	h.platform.mu.Lock()
	h.platform.rejectToken = "signed-with-old-key"
	h.platform.mu.Unlock()

	meta, err := h.factory.Session(testSessionID).AuthMetadata(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if meta == nil || meta.Token != "token:legacy-42:John Doe" {
		t.Fatalf("got %+v, want a freshly minted bundle", meta)
	}
}

func TestAuthMetadataNoPseudonymCachedAsSentinel(t *testing.T) {
	h := newHarness(t)
	seedSession(h, false)
	seedUserMapping(h, "")

	meta, err := h.factory.Session(testSessionID).AuthMetadata(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if meta != nil {
		t.Fatalf("got %+v, want nil for a user without a pseudonym", meta)
	}

	// The answer is cached: the next read does not touch the identity
	// service again.
	calls := h.identity.callCount()
	if meta, err = h.factory.Session(testSessionID).AuthMetadata(context.Background()); err != nil || meta != nil {
		t.Fatalf("cached read: meta=%+v err=%v", meta, err)
	}
	if h.identity.callCount() != calls {
		t.Fatal("cached no-pseudonym answer still resolved the user")
	}
}

func TestAuthMetadataInvalidSessionSurfaced(t *testing.T) {
	h := newHarness(t)
	h.sessions.mu.Lock()
	h.sessions.err = errors.NotFound("no such session")
	h.sessions.mu.Unlock()

	if _, err := h.factory.Session(testSessionID).AuthMetadata(context.Background()); !errors.IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestDestroyDropsCachedSession(t *testing.T) {
	h := newHarness(t)
	seedSession(h, false)

	store := h.factory.Session(testSessionID)
	if _, err := store.SessionData(context.Background()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := store.Destroy(context.Background()); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, ok := sessionCollection(h).document(testSessionID); ok {
		t.Fatal("session document survived destroy")
	}

	if _, err := h.factory.Session(testSessionID).SessionData(context.Background()); err != nil {
		t.Fatalf("resolve after destroy: %v", err)
	}
	if got := h.sessions.callCount(); got != 2 {
		t.Fatalf("session API called %d times, want revalidation after destroy", got)
	}
}
