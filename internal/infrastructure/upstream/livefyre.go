package upstream

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/entities"
	"github.com/Financial-Times/session-user-data-service-sub000/internal/domain/errors"
)

// Livefyre is the comment-platform client. Collection existence is a
// network probe against the bootstrap service; collection metadata and
// auth tokens are produced locally by signing with the shared site and
// network keys.
type Livefyre struct {
	client     *Client
	baseURL    string
	network    string
	networkKey string
	siteKey    string
}

// NewLivefyre creates a comment-platform client.
func NewLivefyre(client *Client, baseURL, network, networkKey, siteKey string) *Livefyre {
	return &Livefyre{
		client:     client,
		baseURL:    baseURL,
		network:    network,
		networkKey: networkKey,
		siteKey:    siteKey,
	}
}

// CollectionConfig carries everything needed to describe a collection.
type CollectionConfig struct {
	ArticleID string
	Title     string
	URL       string
	Tags      string // normalized, comma-joined
	SiteID    string
}

// CollectionExists probes the bootstrap endpoint for an article's
// collection. A 404 means the collection has not been created yet.
func (l *Livefyre) CollectionExists(ctx context.Context, siteID, articleID string) (bool, error) {
	if articleID == "" {
		return false, errors.InvalidInput("article ID is required")
	}

	encodedID := base64.URLEncoding.EncodeToString([]byte(articleID))
	url := fmt.Sprintf("%s/bs3/%s.fyre.co/%s/%s/init", l.baseURL, l.network, siteID, encodedID)
	return l.client.exists(ctx, "livefyre-bootstrap", url)
}

// CollectionDetails builds the signed collectionMeta token and checksum the
// widget needs to create or load a collection. No network involved.
func (l *Livefyre) CollectionDetails(cfg CollectionConfig) (*entities.CollectionDetails, error) {
	if cfg.ArticleID == "" || cfg.SiteID == "" {
		return nil, errors.InvalidInput("article ID and site ID are required")
	}

	claims := jwt.MapClaims{
		"articleId": cfg.ArticleID,
		"title":     cfg.Title,
		"url":       cfg.URL,
		"tags":      cfg.Tags,
		"type":      "livecomments",
	}

	meta, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(l.siteKey))
	if err != nil {
		return nil, errors.ServiceUnavailable("collectionMeta signing failed", err)
	}

	checksum, err := collectionChecksum(cfg)
	if err != nil {
		return nil, errors.ServiceUnavailable("collection checksum failed", err)
	}

	return &entities.CollectionDetails{
		SiteID:         cfg.SiteID,
		ArticleID:      cfg.ArticleID,
		CollectionMeta: meta,
		Checksum:       checksum,
	}, nil
}

// collectionChecksum fingerprints the collection content so the platform
// can detect metadata changes.
func collectionChecksum(cfg CollectionConfig) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"articleId": cfg.ArticleID,
		"title":     cfg.Title,
		"url":       cfg.URL,
		"tags":      cfg.Tags,
	})
	if err != nil {
		return "", err
	}
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:]), nil
}

// AuthToken signs a user auth token for the comment widget.
func (l *Livefyre) AuthToken(userID, displayName string, expires time.Time) (string, error) {
	if userID == "" {
		return "", errors.InvalidInput("user ID is required")
	}

	claims := jwt.MapClaims{
		"domain":       l.network + ".fyre.co",
		"user_id":      userID,
		"display_name": displayName,
		"expires":      expires.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(l.networkKey))
	if err != nil {
		return "", errors.ServiceUnavailable("auth token signing failed", err)
	}
	return token, nil
}

// ValidateToken verifies a widget auth token against the network key.
func (l *Livefyre) ValidateToken(token string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(l.networkKey), nil
	})
	if err != nil || !parsed.Valid {
		return false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	if expires, ok := claims["expires"].(float64); ok {
		return time.Now().Unix() < int64(expires)
	}
	return false
}
