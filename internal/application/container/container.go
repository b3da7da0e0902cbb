// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/Financial-Times/session-user-data-service-sub000/internal/application/services"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/caching"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/performance"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/mongo"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/security"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/upstream"
	"github.com/Financial-Times/session-user-data-service-sub000/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services (stateless singletons)
	LivefyreService *services.LivefyreService
	UserService     *services.UserService

	// Infrastructure dependencies
	Stores      *caching.Factory
	Documents   *mongo.ConnectionProvider
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(logger *logging.ChanneledLogger) (*Container, error) {
	cipher, err := security.NewCipher(config.CryptoKey)
	if err != nil {
		return nil, err
	}

	provider := mongo.NewConnectionProvider(config.MongoURI, config.MongoDatabase,
		config.DBConnectTimeout, config.DBQueryTimeout, logger)

	client := upstream.NewClient(config.UpstreamTimeout, logger)
	stores := caching.NewFactory(caching.Deps{
		Provider:   provider,
		Cipher:     cipher,
		Logger:     logger,
		ContentAPI: upstream.NewContentAPI(client, config.ContentAPIBaseURL, config.ContentAPIKey),
		Sessions:   upstream.NewSessionAPI(client, config.SessionAPIBaseURL, config.SessionAPIKey),
		Profiles:   upstream.NewProfileAPI(client, config.UserProfileAPIBaseURL),
		Identity:   upstream.NewIdentityAPI(client, config.IdentityAPIBaseURL),
		Sites:      upstream.NewSiteMapper(client, config.SiteMappingBaseURL, config.LivefyreDefaultSiteID),
		Platform: upstream.NewLivefyre(client, config.LivefyreBaseURL,
			config.LivefyreNetwork, config.LivefyreNetworkKey, config.LivefyreSiteKey),
	}, caching.Config{
		ArticleTTL:                config.ArticleCacheTTL,
		AuthTokenTTL:              config.AuthTokenTTL,
		SessionValidity:           config.SessionValidityInterval,
		SessionValidityRemembered: config.SessionValidityRemembered,
		SessionFloor:              config.SessionCacheFloor,
		RefreshTimeout:            config.UpstreamTimeout,
	})

	return &Container{
		LivefyreService: services.NewLivefyreService(stores, logger),
		UserService:     services.NewUserService(stores, logger),

		Stores:      stores,
		Documents:   provider,
		Logger:      logger,
		PerfTracker: performance.NewTracker(nil),
	}, nil
}
