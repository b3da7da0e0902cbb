package caching

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	apperrors "github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/documents"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/security"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/upstream"
)

// fakeCollection is an in-memory documents.Collection. Documents are held
// as bson maps and round-tripped through bson marshaling on reads, so the
// stored shapes match what the real driver would persist.
type fakeCollection struct {
	mu      sync.Mutex
	docs    map[string]bson.M
	upserts []upsertCall

	findErr   error
	upsertErr error

	// gate, when set, blocks FindOne until closed. Used to observe
	// coalescing of concurrent loads.
	gate chan struct{}

	finds int
}

type upsertCall struct {
	id          string
	set         map[string]any
	setOnInsert map[string]any
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: make(map[string]bson.M)}
}

func (c *fakeCollection) FindOne(ctx context.Context, id string, out any) error {
	c.mu.Lock()
	gate := c.gate
	c.finds++
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.findErr != nil {
		return c.findErr
	}
	doc, ok := c.docs[id]
	if !ok {
		return documents.ErrNoDocument
	}
	return decodeDoc(doc, out)
}

func (c *fakeCollection) FindOneByField(ctx context.Context, field, value string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finds++
	if c.findErr != nil {
		return c.findErr
	}
	for _, doc := range c.docs {
		if s, ok := doc[field].(string); ok && s == value {
			return decodeDoc(doc, out)
		}
	}
	return documents.ErrNoDocument
}

func (c *fakeCollection) UpsertFields(ctx context.Context, id string, set map[string]any, setOnInsert map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upserts = append(c.upserts, upsertCall{id: id, set: set, setOnInsert: setOnInsert})
	if c.upsertErr != nil {
		return c.upsertErr
	}

	doc, exists := c.docs[id]
	if !exists {
		doc = bson.M{"_id": id}
		c.docs[id] = doc
		for path, value := range setOnInsert {
			applyDottedPath(doc, path, value)
		}
	}
	for path, value := range set {
		applyDottedPath(doc, path, value)
	}
	return nil
}

func (c *fakeCollection) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, id)
	return nil
}

func (c *fakeCollection) findCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finds
}

func (c *fakeCollection) upsertCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.upserts)
}

func (c *fakeCollection) document(id string) (bson.M, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	return doc, ok
}

// seed stores a document built from a typed value, round-tripped through
// bson so it has the same shape an upsert would leave.
func (c *fakeCollection) seed(t *testing.T, id string, doc any) {
	t.Helper()
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("seeding document %s: %v", id, err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("seeding document %s: %v", id, err)
	}
	m["_id"] = id
	c.mu.Lock()
	c.docs[id] = m
	c.mu.Unlock()
}

func decodeDoc(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func applyDottedPath(doc bson.M, path string, value any) {
	parts := strings.Split(path, ".")
	m := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(bson.M)
		if !ok {
			next = bson.M{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

type fakeProvider struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection
	err         error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{collections: make(map[string]*fakeCollection)}
}

func (p *fakeProvider) Collection(ctx context.Context, name string) (documents.Collection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	coll, ok := p.collections[name]
	if !ok {
		coll = newFakeCollection()
		p.collections[name] = coll
	}
	return coll, nil
}

func (p *fakeProvider) collection(name string) *fakeCollection {
	p.mu.Lock()
	defer p.mu.Unlock()
	coll, ok := p.collections[name]
	if !ok {
		coll = newFakeCollection()
		p.collections[name] = coll
	}
	return coll
}

func (p *fakeProvider) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

type fakeTagger struct {
	mu          sync.Mutex
	annotations []entities.Annotation
	err         error
	calls       int

	// gate, when set, blocks GetTags until closed. Used to hold a fetch in
	// flight while more callers pile onto it.
	gate chan struct{}
}

func (f *fakeTagger) GetTags(ctx context.Context, articleID string) ([]entities.Annotation, error) {
	f.mu.Lock()
	gate := f.gate
	f.calls++
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.annotations, f.err
}

func (f *fakeTagger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTagger) set(annotations []entities.Annotation, err error) {
	f.mu.Lock()
	f.annotations, f.err = annotations, err
	f.mu.Unlock()
}

type fakeSessions struct {
	mu    sync.Mutex
	data  *entities.SessionData
	err   error
	calls int
}

func (f *fakeSessions) GetSessionData(ctx context.Context, sessionID string) (*entities.SessionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	data := *f.data
	return &data, nil
}

func (f *fakeSessions) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeProfiles struct {
	mu    sync.Mutex
	info  *entities.BasicUserInfo
	err   error
	calls int
}

func (f *fakeProfiles) GetUserData(ctx context.Context, uuid string) (*entities.BasicUserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	info := *f.info
	return &info, nil
}

func (f *fakeProfiles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeIdentity struct {
	mu       sync.Mutex
	mappings map[string]*upstream.UserMapping
	err      error
	calls    int
}

func (f *fakeIdentity) GetUserMapping(ctx context.Context, id string) (*upstream.UserMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	mapping, ok := f.mappings[id]
	if !ok {
		return nil, apperrors.NotFoundf("no user mapping for %s", id)
	}
	m := *mapping
	return &m, nil
}

func (f *fakeIdentity) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSites struct {
	mu     sync.Mutex
	siteID string
	err    error
	calls  int
}

func (f *fakeSites) GetSiteID(ctx context.Context, articleID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.siteID, f.err
}

type fakePlatform struct {
	mu          sync.Mutex
	exists      bool
	existsErr   error
	existsCalls int
	tokenErr    error

	// rejectToken, when set, fails validation for that one token.
	rejectToken string
}

func (f *fakePlatform) CollectionExists(ctx context.Context, siteID, articleID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls++
	return f.exists, f.existsErr
}

func (f *fakePlatform) CollectionDetails(cfg upstream.CollectionConfig) (*entities.CollectionDetails, error) {
	return &entities.CollectionDetails{
		SiteID:         cfg.SiteID,
		ArticleID:      cfg.ArticleID,
		CollectionMeta: "meta:" + cfg.Tags,
		Checksum:       "checksum",
	}, nil
}

func (f *fakePlatform) AuthToken(userID, displayName string, expires time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "token:" + userID + ":" + displayName, nil
}

func (f *fakePlatform) ValidateToken(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rejectToken == "" || token != f.rejectToken
}

// harness wires a Factory over fakes with the default test policy.
type harness struct {
	provider *fakeProvider
	tagger   *fakeTagger
	sessions *fakeSessions
	profiles *fakeProfiles
	identity *fakeIdentity
	sites    *fakeSites
	platform *fakePlatform
	cipher   *security.Cipher
	factory  *Factory
}

const testCipherKey = "0123456789abcdef0123456789abcdef"

func newHarness(t *testing.T) *harness {
	t.Helper()
	cipher, err := security.NewCipher(testCipherKey)
	if err != nil {
		t.Fatalf("creating test cipher: %v", err)
	}

	h := &harness{
		provider: newFakeProvider(),
		tagger:   &fakeTagger{},
		sessions: &fakeSessions{},
		profiles: &fakeProfiles{},
		identity: &fakeIdentity{mappings: make(map[string]*upstream.UserMapping)},
		sites:    &fakeSites{siteID: "site-1"},
		platform: &fakePlatform{},
		cipher:   cipher,
	}
	h.factory = NewFactory(Deps{
		Provider:   h.provider,
		Cipher:     cipher,
		Logger:     logging.Discard(),
		ContentAPI: h.tagger,
		Sessions:   h.sessions,
		Profiles:   h.profiles,
		Identity:   h.identity,
		Sites:      h.sites,
		Platform:   h.platform,
	}, Config{
		ArticleTTL:                12 * time.Hour,
		AuthTokenTTL:              24 * time.Hour,
		SessionValidity:           24 * time.Hour,
		SessionValidityRemembered: 4320 * time.Hour,
		SessionFloor:              4 * time.Hour,
		RefreshTimeout:            2 * time.Second,
	})
	return h
}

// waitFor polls until the condition holds or the deadline passes. Used to
// observe background refresh writes without sleeping a fixed amount.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
