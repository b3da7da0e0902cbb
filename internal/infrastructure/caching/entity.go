package caching

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/documents"
)

// findFunc locates the entity's document in its collection. A nil document
// with a nil error means "definitively absent".
type findFunc[D any] func(ctx context.Context, coll documents.Collection) (*D, error)

// fetchResult is one in-flight document load shared by every concurrent
// caller. done is closed exactly once, after doc and err are final.
type fetchResult[D any] struct {
	done chan struct{}
	doc  *D
	err  error
}

// entity is the shared cache-aside engine under the Article, Session and
// User stores. Each instance is scoped to one entity ID and holds the
// loaded document in memory so repeated reads within the instance's
// lifetime hit the persistent layer at most once. Concurrent loads within
// the instance coalesce onto a single query.
type entity[D any] struct {
	id         string
	collection string
	provider   documents.Provider
	logger     *logging.ChanneledLogger

	// find defaults to a lookup by _id; stores with alternate-key lookups
	// (user legacy IDs) override it.
	find findFunc[D]

	mu     sync.Mutex
	doc    *D
	loaded bool
	fetch  *fetchResult[D]
}

func newEntity[D any](id, collection string, provider documents.Provider, logger *logging.ChanneledLogger) *entity[D] {
	e := &entity[D]{
		id:         id,
		collection: collection,
		provider:   provider,
		logger:     logger,
	}
	e.find = func(ctx context.Context, coll documents.Collection) (*D, error) {
		var doc D
		if err := coll.FindOne(ctx, e.entityID(), &doc); err != nil {
			return nil, err
		}
		return &doc, nil
	}
	return e
}

// entityID and setID guard the ID because the user store rewrites it after
// resolving a legacy identifier to the canonical key.
func (e *entity[D]) entityID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

func (e *entity[D]) setID(id string) {
	e.mu.Lock()
	e.id = id
	e.mu.Unlock()
}

// load returns the entity's document, reading the persistent layer on first
// use. A (nil, nil) result means the document does not exist. Errors mean
// the persistent layer is unavailable; callers treat that as a cache miss
// and fall through to the upstream instead of failing, coalescing the
// fall-through fetch through the shared FlightGroup.
func (e *entity[D]) load(ctx context.Context) (*D, error) {
	start := time.Now()

	e.mu.Lock()
	id := e.id
	if e.loaded {
		doc := e.doc
		e.mu.Unlock()
		e.logger.LogCacheOperation("load", e.collection, id, doc != nil, time.Since(start))
		return doc, nil
	}
	if f := e.fetch; f != nil {
		e.mu.Unlock()
		select {
		case <-f.done:
			return f.doc, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f := &fetchResult[D]{done: make(chan struct{})}
	e.fetch = f
	e.mu.Unlock()

	f.doc, f.err = e.query(ctx)

	e.mu.Lock()
	if f.err == nil {
		e.doc = f.doc
		e.loaded = true
	}
	e.fetch = nil
	e.mu.Unlock()
	close(f.done)

	e.logger.LogCacheOperation("load", e.collection, id, f.err == nil && f.doc != nil, time.Since(start))
	return f.doc, f.err
}

func (e *entity[D]) query(ctx context.Context) (*D, error) {
	coll, err := e.provider.Collection(ctx, e.collection)
	if err != nil {
		e.logger.Cache().Warn("Document store unavailable, falling through to upstream",
			"collection", e.collection, "id", e.entityID(), "error", err)
		return nil, err
	}
	doc, err := e.find(ctx, coll)
	if stderrors.Is(err, documents.ErrNoDocument) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// upsert merges the given dotted-path fields into the entity's document and
// drops the in-memory copy so the next read observes the merged state.
// Write failures are logged and returned, but stores treat them as
// non-fatal: a failed cache write never fails the read that produced it.
func (e *entity[D]) upsert(ctx context.Context, set, setOnInsert map[string]any) error {
	defer e.invalidate()
	id := e.entityID()

	coll, err := e.provider.Collection(ctx, e.collection)
	if err != nil {
		e.logger.Cache().Warn("Document store unavailable, skipping cache write",
			"collection", e.collection, "id", id, "error", err)
		return err
	}
	if err := coll.UpsertFields(ctx, id, set, setOnInsert); err != nil {
		e.logger.Cache().Warn("Cache write failed",
			"collection", e.collection, "id", id, "error", err)
		return err
	}
	return nil
}

// destroy removes the entity's document and in-memory state.
func (e *entity[D]) destroy(ctx context.Context) error {
	defer e.invalidate()

	coll, err := e.provider.Collection(ctx, e.collection)
	if err != nil {
		return err
	}
	return coll.Delete(ctx, e.entityID())
}

// invalidate clears the in-memory copy. The next load re-reads the store.
func (e *entity[D]) invalidate() {
	e.mu.Lock()
	e.doc = nil
	e.loaded = false
	e.mu.Unlock()
}
