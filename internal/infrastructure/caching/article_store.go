package caching

import (
	"context"
	"time"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/documents"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/upstream"
)

// articleLivefyre is the comment-platform portion of an article document.
// CollectionExists is only ever written as true; a missing collection is
// re-probed on every read because the widget may create it at any moment.
type articleLivefyre struct {
	CollectionExists bool                               `bson:"collectionExists,omitempty"`
	Metadata         *Timed[entities.CollectionDetails] `bson:"metadata,omitempty"`
}

type articleDoc struct {
	ID       string           `bson:"_id"`
	Tags     *Timed[[]string] `bson:"tags,omitempty"`
	Livefyre articleLivefyre  `bson:"livefyre,omitempty"`
}

// ArticleStore caches article tags and comment-collection metadata for one
// article ID. Instances are request-scoped; build them through the Factory.
type ArticleStore struct {
	*entity[articleDoc]

	capi     ContentTagger
	platform CommentPlatform
	sites    SiteResolver
	refresh  *RefreshLock
	flights  *FlightGroup
	cfg      Config
}

func newArticleStore(id string, provider documents.Provider, logger *logging.ChanneledLogger,
	capi ContentTagger, platform CommentPlatform, sites SiteResolver,
	refresh *RefreshLock, flights *FlightGroup, cfg Config) *ArticleStore {
	return &ArticleStore{
		entity:   newEntity[articleDoc](id, documents.ArticlesCollection, provider, logger),
		capi:     capi,
		platform: platform,
		sites:    sites,
		refresh:  refresh,
		flights:  flights,
		cfg:      cfg,
	}
}

// ID returns the article ID the store is scoped to.
func (s *ArticleStore) ID() string { return s.id }

// Tags returns the article's tags: the cached content-API set merged with
// tags derived from the article URL. URL-derived tags are computed fresh on
// every call and never persisted. A stale cached set is returned as-is
// while a background refresh replaces it.
func (s *ArticleStore) Tags(ctx context.Context, articleURL string) ([]string, error) {
	if s.id == "" {
		return nil, errors.InvalidInput("article ID is required")
	}
	urlTags := entities.TagsFromURL(articleURL)

	doc, err := s.load(ctx)
	if err == nil && doc != nil && doc.Tags != nil {
		cached := *doc.Tags
		if cached.Expired(time.Now()) {
			s.refreshTagsAsync()
		}
		return entities.MergeTags(cached.Data, urlTags), nil
	}

	return entities.MergeTags(s.fetchTagsShared(ctx), urlTags), nil
}

// fetchTagsShared coalesces concurrent cold-miss tag reads onto one content
// API call. A caller cancelled while waiting degrades to URL tags only.
func (s *ArticleStore) fetchTagsShared(ctx context.Context) []string {
	v, err := s.flights.Do(ctx, documents.ArticlesCollection+":"+s.id+":tags", func() (any, error) {
		return s.fetchAndStoreTags(ctx), nil
	})
	if err != nil {
		return nil
	}
	tags, _ := v.([]string)
	return tags
}

// fetchAndStoreTags fetches tags from the content API and caches them.
// Upstream failures degrade to an empty set cached with the short degraded
// lifetime, so the read still succeeds with URL-derived tags only.
func (s *ArticleStore) fetchAndStoreTags(ctx context.Context) []string {
	annotations, err := s.capi.GetTags(ctx, s.id)
	switch {
	case err == nil:
		tags := entities.TagsFromAnnotations(annotations)
		s.upsert(ctx, map[string]any{"tags": NewTimed(tags, s.cfg.ArticleTTL)}, nil)
		return tags
	case errors.IsNotFound(err):
		// Unknown article: an empty tag set is the real answer, cached at
		// the normal lifetime.
		s.upsert(ctx, map[string]any{"tags": NewTimed[[]string](nil, s.cfg.ArticleTTL)}, nil)
		return nil
	default:
		s.logger.Upstream().Warn("Content API tag fetch failed, caching degraded empty set",
			"articleId", s.id, "error", err)
		s.upsert(ctx, map[string]any{"tags": NewDegraded[[]string](nil)}, nil)
		return nil
	}
}

func (s *ArticleStore) refreshTagsAsync() {
	key := documents.ArticlesCollection + ":" + s.id + ":tags"
	if !s.refresh.TryLock(key) {
		return
	}
	go func() {
		defer s.refresh.Unlock(key)
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout)
		defer cancel()
		s.fetchAndStoreTags(ctx)
	}()
}

// CollectionExists reports whether the article's comment collection has
// been created on the platform. Only a positive answer is cached; a
// negative one is re-probed next time.
func (s *ArticleStore) CollectionExists(ctx context.Context) (bool, error) {
	if s.id == "" {
		return false, errors.InvalidInput("article ID is required")
	}

	doc, err := s.load(ctx)
	if err == nil && doc != nil && doc.Livefyre.CollectionExists {
		return true, nil
	}

	v, err := s.flights.Do(ctx, documents.ArticlesCollection+":"+s.id+":exists", func() (any, error) {
		siteID, err := s.sites.GetSiteID(ctx, s.id)
		if err != nil {
			return false, err
		}
		exists, err := s.platform.CollectionExists(ctx, siteID, s.id)
		if err != nil {
			return false, err
		}
		if exists {
			s.upsert(ctx, map[string]any{"livefyre.collectionExists": true}, nil)
		}
		return exists, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// CollectionDetails returns the signed collection metadata the comment
// widget needs to initialize. Stale metadata is served while a background
// refresh re-signs it with current tags.
func (s *ArticleStore) CollectionDetails(ctx context.Context, title, articleURL string) (*entities.CollectionDetails, error) {
	if s.id == "" {
		return nil, errors.InvalidInput("article ID is required")
	}

	doc, err := s.load(ctx)
	if err == nil && doc != nil && doc.Livefyre.Metadata != nil {
		cached := *doc.Livefyre.Metadata
		if cached.Expired(time.Now()) {
			s.refreshMetadataAsync(title, articleURL)
		}
		details := cached.Data
		return &details, nil
	}

	return s.fetchMetadataShared(ctx, title, articleURL)
}

// fetchMetadataShared coalesces concurrent cold-miss metadata reads onto one
// signing pass.
func (s *ArticleStore) fetchMetadataShared(ctx context.Context, title, articleURL string) (*entities.CollectionDetails, error) {
	v, err := s.flights.Do(ctx, documents.ArticlesCollection+":"+s.id+":metadata", func() (any, error) {
		return s.fetchAndStoreMetadata(ctx, title, articleURL)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entities.CollectionDetails), nil
}

// fetchAndStoreMetadata signs fresh collection metadata. An unclassified
// article is a terminal condition surfaced as-is and never cached.
func (s *ArticleStore) fetchAndStoreMetadata(ctx context.Context, title, articleURL string) (*entities.CollectionDetails, error) {
	siteID, err := s.sites.GetSiteID(ctx, s.id)
	if err != nil {
		return nil, err
	}

	tags, err := s.Tags(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	details, err := s.platform.CollectionDetails(upstream.CollectionConfig{
		ArticleID: s.id,
		Title:     title,
		URL:       articleURL,
		Tags:      entities.NormalizeTags(tags),
		SiteID:    siteID,
	})
	if err != nil {
		return nil, err
	}

	s.upsert(ctx, map[string]any{"livefyre.metadata": NewTimed(*details, s.cfg.ArticleTTL)}, nil)
	return details, nil
}

func (s *ArticleStore) refreshMetadataAsync(title, articleURL string) {
	key := documents.ArticlesCollection + ":" + s.id + ":metadata"
	if !s.refresh.TryLock(key) {
		return
	}
	go func() {
		defer s.refresh.Unlock(key)
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RefreshTimeout)
		defer cancel()
		if _, err := s.fetchAndStoreMetadata(ctx, title, articleURL); err != nil {
			s.logger.Cache().Warn("Background collection metadata refresh failed",
				"articleId", s.id, "error", err)
		}
	}()
}
