package domain

import (
	"fmt"
	"regexp"
	"time"
)

// Chunk is one page (or section) of a source PDF report. Immutable once
// produced by ingestion; chunks and their vectors are parallel slices and
// must never be reordered independently.
type Chunk struct {
	Text string
	Meta map[string]string
}

// RetrievedDocument is a transient similarity-search hit. Payload carries
// the stored fields (title, text); vectors are never returned.
type RetrievedDocument struct {
	Text    string
	Title   string
	Score   float64
	Payload map[string]string
}

// MonthlySuffix marks the globally shared monthly allocation-recommendation
// collection. At most one collection with this suffix exists system-wide.
const MonthlySuffix = "_mensal"

// PerformanceSuffix marks a per-deal performance-report collection.
const PerformanceSuffix = "_xperformance"

var collectionNameRe = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// SanitizeCollectionName replaces every rune outside [A-Za-z0-9_-] with an
// underscore. Idempotent.
func SanitizeCollectionName(name string) string {
	return collectionNameRe.ReplaceAllString(name, "_")
}

// CollectionBase builds the per-deal collection base name from the PDF file
// stem, the extracted client id and the processing date.
func CollectionBase(pdfStem, clientID string, day time.Time) string {
	return SanitizeCollectionName(fmt.Sprintf("%s_%s_%s", pdfStem, clientID, day.Format("2006-01-02")))
}
