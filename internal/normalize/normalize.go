// Package normalize turns heterogeneous upstream article data into
// models.ArticleRecord values.
package normalize

import (
	"strings"

	"github.com/DeafMist/biaslens/internal/models"
)

// Domain derives the normalized source domain from rawURL: the third
// "/"-separated segment with a leading "www." removed, lower-cased. ok is false
// when rawURL has too few segments to carry a host; the domain can still be
// empty with ok set, e.g. for "https://".
func Domain(rawURL string) (domain string, ok bool) {
	parts := strings.Split(rawURL, "/")
	if len(parts) <= 2 {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(parts[2]), "www.")
	return host, true
}

// Article fills every ArticleRecord field from raw. Content falls back to the
// description, and the domain is left empty when the URL cannot be parsed.
func Article(raw models.RawArticle) models.ArticleRecord {
	content := raw.Content
	if content == "" {
		content = raw.Description
	}

	domain, _ := Domain(raw.URL)

	return models.ArticleRecord{
		Title:       raw.Title,
		Description: raw.Description,
		Content:     content,
		URL:         raw.URL,
		SourceName:  raw.Source.Name,
		Domain:      domain,
	}
}

// Fields reads the classifier inputs from an untyped article mapping. Missing
// keys and non-string values read as "".
func Fields(raw map[string]any) models.TextFields {
	return models.TextFields{
		Title:       stringField(raw, "title"),
		Description: stringField(raw, "description"),
		Content:     stringField(raw, "content"),
	}
}

func stringField(raw map[string]any, key string) string {
	v, ok := raw[key].(string)
	if !ok {
		return ""
	}
	return v
}
