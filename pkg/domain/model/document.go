package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// SourceKind identifies the system a document was ingested from
type SourceKind string

const (
	SourceKindNotion SourceKind = "notion"
	SourceKindGitHub SourceKind = "github"
	SourceKindLocal  SourceKind = "local"
)

// Document is a unit of reference documentation before chunking
type Document struct {
	Source    SourceKind
	SourceID  string
	Title     string
	URL       string
	Scope     string // origin scope such as a Notion database or repository name
	UpdatedAt time.Time
	Text      string
}

// NormalizedText returns the document text with surrounding whitespace removed
func (d *Document) NormalizedText() string {
	return strings.TrimSpace(d.Text)
}

// ContentHash returns the hex SHA-256 of the normalized text. Re-ingesting a
// document whose hash is already indexed is skipped.
func (d *Document) ContentHash() string {
	sum := sha256.Sum256([]byte(d.NormalizedText()))
	return hex.EncodeToString(sum[:])
}
