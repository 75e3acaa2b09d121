package models

import "time"

// BiasLabel is the result of the domain table strategy.
type BiasLabel string

const (
	BiasLeft    BiasLabel = "left"
	BiasCenter  BiasLabel = "center"
	BiasRight   BiasLabel = "right"
	BiasUnknown BiasLabel = "unknown"
)

// Valid reports whether b is one of left, center or right.
func (b BiasLabel) Valid() bool {
	switch b {
	case BiasLeft, BiasCenter, BiasRight:
		return true
	default:
		return false
	}
}

// ContentBias is the result of the content classifier strategy.
type ContentBias struct {
	Label      BiasLabel `json:"label"`
	Confidence float64   `json:"confidence"`
}

// Sentiment is the three-way sentiment taxonomy.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// AnalysisResult is the response of a single-article analysis.
type AnalysisResult struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
	Bias      string `json:"bias"`
}

// ListingArticle is one entry of the search-and-analyze listing.
type ListingArticle struct {
	Title     string    `json:"title"`
	Original  string    `json:"original"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	Sentiment Sentiment `json:"sentiment"`
	Bias      BiasLabel `json:"bias"`
}

// AnalysisRequest is a queued single-article analysis.
type AnalysisRequest struct {
	ID string `json:"id"`
	ArticleInput
}

// AnalysisEnvelope carries the outcome of a queued analysis.
type AnalysisEnvelope struct {
	ID         string          `json:"id"`
	Result     *AnalysisResult `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	AnalyzedAt time.Time       `json:"analyzed_at"`
}
