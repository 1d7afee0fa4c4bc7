// Package models defines the data types shared between repositories,
// services, and API handlers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryType classifies a searchable content entry.
type EntryType string

// Known entry types. The store does not enforce the set; these cover the
// content catalog as modeled today.
const (
	EntryTypeBestPractice EntryType = "best-practice"
	EntryTypeProofPoint   EntryType = "proof-point"
	EntryTypeTool         EntryType = "tool"
	EntryTypePlaybook     EntryType = "playbook"
	EntryTypeTemplate     EntryType = "template"
)

// TaxonomyDimension names one taxonomy axis (facet dimension).
type TaxonomyDimension string

// Taxonomy dimensions used for faceting and filtering.
const (
	DimensionSection    TaxonomyDimension = "section"
	DimensionChannel    TaxonomyDimension = "channel"
	DimensionCapability TaxonomyDimension = "capability"
	DimensionIndustry   TaxonomyDimension = "industry"
	DimensionAudience   TaxonomyDimension = "audience"
	DimensionProduct    TaxonomyDimension = "product"
	DimensionProofType  TaxonomyDimension = "proofType"
	DimensionPermission TaxonomyDimension = "permission"
)

// TaxonomyDimensions lists every dimension in a stable order.
var TaxonomyDimensions = []TaxonomyDimension{
	DimensionSection, DimensionChannel, DimensionCapability, DimensionIndustry,
	DimensionAudience, DimensionProduct, DimensionProofType, DimensionPermission,
}

// TaxonomyRef is a resolved taxonomy reference. Results returned to clients
// always carry resolved refs, never bare IDs.
type TaxonomyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Entry is the denormalized searchable projection of a source content
// document. Read-only to the search subsystem; written by the CMS sync.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	SourceID  string    `json:"source_id"`
	Hub       string    `json:"hub"`
	Type      EntryType `json:"type"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Summary   string    `json:"summary,omitempty"`
	Headline  string    `json:"headline,omitempty"`
	Body      string    `json:"-"`
	Customer  string    `json:"customer,omitempty"`
	Account   string    `json:"account,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Status    string    `json:"-"`
	Priority  int       `json:"priority"`
	Featured  bool      `json:"featured"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Taxonomy holds resolved refs grouped by dimension. Empty groups are omitted.
	Taxonomy map[TaxonomyDimension][]TaxonomyRef `json:"taxonomy,omitempty"`
}

// EntryWithScore pairs an entry with a similarity score in [0,1].
type EntryWithScore struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

// EntryPage is one page of search results plus the total count matching the
// same predicate (independent of limit/offset).
type EntryPage struct {
	Results []Entry `json:"results"`
	Total   int     `json:"total"`
}

// ContentDocument is the full document snapshot carried by a CMS change
// webhook. Fields the synchronizer does not use are ignored on decode.
type ContentDocument struct {
	SourceID string   `json:"_id"`
	Type     string   `json:"_type"`
	Status   string   `json:"status"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Headline string   `json:"headline"`
	Body     string   `json:"body"`
	Customer string   `json:"customer"`
	Account  string   `json:"account"`
	Tags     []string `json:"tags"`
}

// StatusPublished is the publication status required before a document is
// embedded or returned by search.
const StatusPublished = "published"
