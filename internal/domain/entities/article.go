// Package entities defines the value types and pure domain logic for the
// article, session and user entities served by the data stores.
package entities

import (
	"net/url"
	"strings"
)

// Annotation is one content-API tag attached to an article.
type Annotation struct {
	Type          string `json:"type"`
	Label         string `json:"label"`
	PrimaryAuthor bool   `json:"primaryAuthor,omitempty"`
}

// CollectionDetails describes a Livefyre comment collection for an article.
type CollectionDetails struct {
	SiteID         string `json:"siteId" bson:"siteId"`
	ArticleID      string `json:"articleId" bson:"articleId"`
	CollectionMeta string `json:"collectionMeta" bson:"collectionMeta"`
	Checksum       string `json:"checksum" bson:"checksum"`
}

// TagsFromAnnotations converts content-API annotations into namespaced
// "{kind}.{label}" tags, deduplicated, with an extra "author.{name}" entry
// duplicated for any contributor marked as the primary author.
func TagsFromAnnotations(annotations []Annotation) []string {
	var tags []string
	seen := make(map[string]bool)

	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	for _, ann := range annotations {
		if ann.Label == "" {
			continue
		}
		kind := strings.ToLower(ann.Type)
		add(kind + "." + ann.Label)
		if ann.PrimaryAuthor {
			add("author." + ann.Label)
		}
	}

	return tags
}

// TagsFromURL derives tags from the article URL structure. These follow the
// site's blog and section naming conventions and are appended fresh on every
// read, never cached.
func TagsFromURL(rawURL string) []string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil
	}

	host := strings.ToLower(parsed.Host)
	path := parsed.Path

	var tags []string

	switch {
	case host == "ftalphaville.ft.com":
		tags = append(tags, "alphaville", "blog")
		if strings.Contains(path, "longroom") {
			tags = append(tags, "longroom")
		}
	case host == "lexicon.ft.com":
		tags = append(tags, "lexicon")
	case strings.HasPrefix(host, "blogs.") && strings.HasSuffix(host, ".ft.com"):
		tags = append(tags, "blog")
		if segment := firstPathSegment(path); segment != "" {
			tags = append(tags, segment)
		}
	}

	return tags
}

func firstPathSegment(path string) string {
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			return segment
		}
	}
	return ""
}

// MergeTags appends the URL-derived tags to the content-API-derived set,
// keeping order and dropping duplicates.
func MergeTags(capiTags, urlTags []string) []string {
	merged := make([]string, 0, len(capiTags)+len(urlTags))
	seen := make(map[string]bool)
	for _, tag := range capiTags {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	for _, tag := range urlTags {
		if !seen[tag] {
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	return merged
}

// NormalizeTag prepares a tag for the collection token payload: spaces become
// underscores and commas are dropped, since commas join the final tag list.
func NormalizeTag(tag string) string {
	tag = strings.ReplaceAll(tag, ",", "")
	return strings.ReplaceAll(tag, " ", "_")
}

// NormalizeTags applies NormalizeTag to every tag and joins them for the
// upstream token payload.
func NormalizeTags(tags []string) string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		if n := NormalizeTag(tag); n != "" {
			normalized = append(normalized, n)
		}
	}
	return strings.Join(normalized, ",")
}
