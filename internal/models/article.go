// Package models holds the article, analysis and error types shared across packages.
package models

// RawArticle is an article as returned by a news source. Missing or null
// fields decode to the empty string.
type RawArticle struct {
	Source      RawSource `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt string    `json:"publishedAt"`
	Content     string    `json:"content"`
}

// RawSource identifies the publisher of a RawArticle.
type RawSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ArticleRecord is a normalized article. Every text field is populated, possibly
// with the empty string.
type ArticleRecord struct {
	Title       string
	Description string
	Content     string
	URL         string
	SourceName  string
	// Domain is the normalized host derived from URL, empty when URL could not
	// be parsed.
	Domain string
}

// DisplaySource is the source shown to clients: the domain when known,
// otherwise the upstream source name.
func (a ArticleRecord) DisplaySource() string {
	if a.Domain != "" {
		return a.Domain
	}
	return a.SourceName
}

// TextFields are the inputs of the content bias classifier.
type TextFields struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// ArticleInput is the payload of a single-article analysis.
type ArticleInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}
