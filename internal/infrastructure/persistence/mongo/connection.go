// Package mongo implements the document-store contract against MongoDB.
// The connection provider memoizes one client per URI for the process
// lifetime and coalesces concurrent connection attempts.
package mongo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/documents"
)

// dialFunc establishes one client. Swapped out by tests.
type dialFunc func(ctx context.Context, uri string) (*mongo.Client, error)

// connAttempt is one in-flight or completed connection attempt. All waiters
// share the outcome; ready is closed exactly once.
type connAttempt struct {
	ready  chan struct{}
	client *mongo.Client
	err    error
}

// ConnectionProvider lazily connects to the document store. Callers that
// arrive while an attempt is in flight wait for that attempt instead of
// starting their own. A waiter gives up after the connect timeout even if
// the underlying attempt later succeeds; the late success is memoized for
// future callers only.
type ConnectionProvider struct {
	uri            string
	database       string
	connectTimeout time.Duration
	queryTimeout   time.Duration
	dial           dialFunc
	logger         *logging.ChanneledLogger

	mu       sync.Mutex
	attempts map[string]*connAttempt
}

// NewConnectionProvider creates a provider for the given URI and database.
func NewConnectionProvider(uri, database string, connectTimeout, queryTimeout time.Duration, logger *logging.ChanneledLogger) *ConnectionProvider {
	return &ConnectionProvider{
		uri:            uri,
		database:       database,
		connectTimeout: connectTimeout,
		queryTimeout:   queryTimeout,
		dial:           dialMongo,
		logger:         logger,
		attempts:       make(map[string]*connAttempt),
	}
}

func dialMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// connect returns the memoized client for the provider's URI, starting a
// single shared attempt when none exists.
func (p *ConnectionProvider) connect(ctx context.Context) (*mongo.Client, error) {
	p.mu.Lock()
	attempt, exists := p.attempts[p.uri]
	if !exists {
		attempt = &connAttempt{ready: make(chan struct{})}
		p.attempts[p.uri] = attempt
		go p.run(p.uri, attempt)
	}
	p.mu.Unlock()

	select {
	case <-attempt.ready:
		if attempt.err != nil {
			return nil, attempt.err
		}
		return attempt.client, nil
	case <-time.After(p.connectTimeout):
		p.logger.Database().Warn("Document store connection attempt timed out", "uri", redactURI(p.uri), "timeout", p.connectTimeout)
		return nil, errors.ServiceUnavailable("document store connection timed out", nil)
	case <-ctx.Done():
		return nil, errors.ServiceUnavailable("document store connection cancelled", ctx.Err())
	}
}

// run performs the actual connection attempt. It outlives its waiters so a
// slow success still populates the cache.
func (p *ConnectionProvider) run(uri string, attempt *connAttempt) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 3*p.connectTimeout)
	defer cancel()

	client, err := p.dial(ctx, uri)
	if err != nil {
		attempt.err = errors.ServiceUnavailable("document store connection failed", err)
		// Failed attempts are not memoized. The next caller retries.
		p.mu.Lock()
		delete(p.attempts, uri)
		p.mu.Unlock()
		p.logger.Database().Error("Document store connection failed", "uri", redactURI(uri), "error", err.Error(), "duration", time.Since(start))
	} else {
		attempt.client = client
		p.logger.Database().Info("Document store connected", "uri", redactURI(uri), "duration", time.Since(start))
	}
	close(attempt.ready)
}

// Collection implements documents.Provider.
func (p *ConnectionProvider) Collection(ctx context.Context, name string) (documents.Collection, error) {
	client, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	return &collection{
		coll:         client.Database(p.database).Collection(name),
		name:         name,
		queryTimeout: p.queryTimeout,
		logger:       p.logger,
	}, nil
}

// Warm starts the connection attempt eagerly, at startup, so the first
// request does not pay the dial latency.
func (p *ConnectionProvider) Warm(ctx context.Context) error {
	_, err := p.connect(ctx)
	return err
}

// Ping checks document-store reachability for health checks. It does not
// start a connection attempt when none has been made.
func (p *ConnectionProvider) Ping(ctx context.Context) error {
	p.mu.Lock()
	attempt, exists := p.attempts[p.uri]
	p.mu.Unlock()

	if !exists {
		return errors.ServiceUnavailable("document store not connected", nil)
	}

	select {
	case <-attempt.ready:
	default:
		return errors.ServiceUnavailable("document store connection in flight", nil)
	}
	if attempt.err != nil {
		return attempt.err
	}
	return attempt.client.Ping(ctx, readpref.Primary())
}

// Close disconnects every memoized client.
func (p *ConnectionProvider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for uri, attempt := range p.attempts {
		select {
		case <-attempt.ready:
			if attempt.client != nil {
				if err := attempt.client.Disconnect(ctx); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		default:
			// Attempt still in flight; its client was never handed out.
		}
		delete(p.attempts, uri)
	}
	return firstErr
}

// redactURI strips credentials from a connection string before logging.
func redactURI(uri string) string {
	at := -1
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == '@' {
			at = i
			break
		}
	}
	if at == -1 {
		return uri
	}
	scheme := ""
	for i := 0; i+2 < len(uri); i++ {
		if uri[i] == ':' && uri[i+1] == '/' && uri[i+2] == '/' {
			scheme = uri[:i+3]
			break
		}
	}
	return scheme + "***" + uri[at:]
}
