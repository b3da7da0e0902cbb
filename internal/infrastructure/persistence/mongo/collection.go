package mongo

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/observability/logging"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/persistence/documents"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/infrastructure/security"
)

// collection adapts one mongo collection to the documents contract. Every
// query gets the configured timeout; driver errors surface as
// ServiceUnavailable so the stores fall through to their upstream path.
type collection struct {
	coll         *mongo.Collection
	name         string
	queryTimeout time.Duration
	logger       *logging.ChanneledLogger
}

func (c *collection) FindOne(ctx context.Context, id string, out any) error {
	return c.findOne(ctx, bson.M{"_id": id}, out)
}

func (c *collection) FindOneByField(ctx context.Context, field, value string, out any) error {
	return c.findOne(ctx, bson.M{field: value}, out)
}

func (c *collection) findOne(ctx context.Context, filter bson.M, out any) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	err := c.coll.FindOne(ctx, filter).Decode(out)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return documents.ErrNoDocument
		}
		c.logger.Database().Error("Document query failed", "collection", c.name, "error", err.Error(), "duration", time.Since(start))
		return errors.ServiceUnavailable("document query failed", err)
	}

	c.logger.Database().Debug("Document loaded", "collection", c.name, "duration", time.Since(start))
	return nil
}

func (c *collection) UpsertFields(ctx context.Context, id string, set map[string]any, setOnInsert map[string]any) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M(security.SanitizeKeys(set))}
	if len(setOnInsert) > 0 {
		update["$setOnInsert"] = bson.M(security.SanitizeKeys(setOnInsert))
	}

	_, err := c.coll.UpdateByID(ctx, id, update, options.Update().SetUpsert(true))
	if err != nil {
		c.logger.Database().Error("Document upsert failed", "collection", c.name, "id", id, "error", err.Error(), "duration", time.Since(start))
		return errors.ServiceUnavailable("document upsert failed", err)
	}

	c.logger.Database().Debug("Document upserted", "collection", c.name, "id", id, "fields", len(set), "duration", time.Since(start))
	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	_, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		c.logger.Database().Error("Document delete failed", "collection", c.name, "id", id, "error", err.Error(), "duration", time.Since(start))
		return errors.ServiceUnavailable("document delete failed", err)
	}

	c.logger.Database().Debug("Document deleted", "collection", c.name, "id", id, "duration", time.Since(start))
	return nil
}
