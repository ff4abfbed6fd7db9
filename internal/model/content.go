package model

import (
	"errors"
	"time"
)

// ContentType is the closed set of content variants a chapter can carry.
type ContentType string

const (
	ContentPDFFree          ContentType = "PDF_FREE"
	ContentPDFPremium       ContentType = "PDF_PREMIUM"
	ContentPDFUltra         ContentType = "PDF_ULTRA"
	ContentVideoLecture     ContentType = "VIDEO_LECTURE"
	ContentMCQSimple        ContentType = "MCQ_SIMPLE"
	ContentMCQAnalysis      ContentType = "MCQ_ANALYSIS"
	ContentNotesHTMLFree    ContentType = "NOTES_HTML_FREE"
	ContentNotesHTMLPremium ContentType = "NOTES_HTML_PREMIUM"
	ContentNotesSimple      ContentType = "NOTES_SIMPLE"
	ContentNotesPremium     ContentType = "NOTES_PREMIUM"
	ContentAIVisualNotes    ContentType = "AI_VISUAL_NOTES"
)

// Default costs applied when the admin record does not set a price.
const (
	DefaultVideoCost       = 5
	DefaultUltraPDFCost    = 10
	DefaultVisualNotesCost = 5
)

// ErrVariantNotPresent is returned by Resolve when the chapter record carries
// no material for the requested content type.
var ErrVariantNotPresent = errors.New("content variant not present")

// ContentDescriptor is what the entitlement evaluator sees: the type tag and
// the resolved credit cost of one piece of content.
type ContentDescriptor struct {
	Type ContentType `json:"type"`
	Cost int         `json:"cost"`
}

// ChapterContent is one admin-curated (or generated) content record, keyed by
// board/class/stream/subject/chapter. A single record consolidates every
// variant for the chapter; Resolve picks one out.
type ChapterContent struct {
	Key         string `db:"content_key" json:"content_key"`
	Board       string `db:"board" json:"board"`
	ClassLevel  string `db:"class_level" json:"class_level"`
	Stream      string `db:"stream" json:"stream"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	ChapterID   string `db:"chapter_id" json:"chapter_id"`

	FreeLink         string   `json:"free_link,omitempty"`
	PremiumLink      string   `json:"premium_link,omitempty"`
	UltraPDFLink     string   `json:"ultra_pdf_link,omitempty"`
	FreeVideoLink    string   `json:"free_video_link,omitempty"`
	PremiumVideoLink string   `json:"premium_video_link,omitempty"`
	VideoPlaylist    []string `json:"video_playlist,omitempty"`
	HTMLBody         string   `json:"html_body,omitempty"`

	ManualMCQs     []MCQItem `json:"manual_mcqs,omitempty"`
	WeeklyTestMCQs []MCQItem `json:"weekly_test_mcqs,omitempty"`

	// Admin-set prices. Nil means "use the type default".
	Price           *int `json:"price,omitempty"`
	VideoCost       *int `json:"video_cost,omitempty"`
	VisualNotesCost *int `json:"visual_notes_cost,omitempty"`

	Generated bool      `json:"generated"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolvedContent is the outcome of picking one variant out of a chapter
// record: the descriptor the evaluator needs plus the deliverable payload.
type ResolvedContent struct {
	Descriptor ContentDescriptor
	// Link is set for PDF and video variants; Body for HTML notes;
	// Questions for MCQ variants.
	Link      string
	Playlist  []string
	Body      string
	Questions []MCQItem
}

// Resolve picks the requested variant out of the record and prices it.
// Free variants always cost zero; paid variants use the admin price with a
// per-type fallback.
func (c *ChapterContent) Resolve(t ContentType) (*ResolvedContent, error) {
	switch t {
	case ContentPDFFree:
		if c.FreeLink == "" {
			return nil, ErrVariantNotPresent
		}
		return &ResolvedContent{Descriptor: ContentDescriptor{Type: t, Cost: 0}, Link: c.FreeLink}, nil

	case ContentPDFPremium:
		if c.PremiumLink == "" {
			return nil, ErrVariantNotPresent
		}
		return &ResolvedContent{Descriptor: ContentDescriptor{Type: t, Cost: priceOr(c.Price, 0)}, Link: c.PremiumLink}, nil

	case ContentPDFUltra:
		if c.UltraPDFLink == "" {
			return nil, ErrVariantNotPresent
		}
		return &ResolvedContent{Descriptor: ContentDescriptor{Type: t, Cost: DefaultUltraPDFCost}, Link: c.UltraPDFLink}, nil

	case ContentVideoLecture:
		if len(c.VideoPlaylist) == 0 && c.FreeVideoLink == "" && c.PremiumVideoLink == "" {
			return nil, ErrVariantNotPresent
		}
		// Prefer the premium link, then the free one.
		link := c.PremiumVideoLink
		if link == "" {
			link = c.FreeVideoLink
		}
		return &ResolvedContent{
			Descriptor: ContentDescriptor{Type: t, Cost: priceOr(c.VideoCost, DefaultVideoCost)},
			Link:       link,
			Playlist:   c.VideoPlaylist,
		}, nil

	case ContentNotesHTMLFree, ContentNotesSimple:
		if c.HTMLBody == "" {
			return nil, ErrVariantNotPresent
		}
		return &ResolvedContent{Descriptor: ContentDescriptor{Type: t, Cost: 0}, Body: c.HTMLBody}, nil

	case ContentNotesHTMLPremium, ContentNotesPremium:
		if c.HTMLBody == "" {
			return nil, ErrVariantNotPresent
		}
		return &ResolvedContent{Descriptor: ContentDescriptor{Type: t, Cost: priceOr(c.Price, 0)}, Body: c.HTMLBody}, nil

	case ContentAIVisualNotes:
		if c.HTMLBody == "" {
			return nil, ErrVariantNotPresent
		}
		return &ResolvedContent{
			Descriptor: ContentDescriptor{Type: t, Cost: priceOr(c.VisualNotesCost, DefaultVisualNotesCost)},
			Body:       c.HTMLBody,
		}, nil

	case ContentMCQSimple, ContentMCQAnalysis:
		qs := append(append([]MCQItem{}, c.ManualMCQs...), c.WeeklyTestMCQs...)
		if len(qs) == 0 {
			return nil, ErrVariantNotPresent
		}
		return &ResolvedContent{Descriptor: ContentDescriptor{Type: t, Cost: priceOr(c.Price, 0)}, Questions: qs}, nil
	}
	return nil, ErrVariantNotPresent
}

// IsPDF reports whether the content type is delivered as an object-storage
// document rather than an inline payload.
func (t ContentType) IsPDF() bool {
	return t == ContentPDFFree || t == ContentPDFPremium || t == ContentPDFUltra
}

func priceOr(p *int, fallback int) int {
	if p != nil && *p >= 0 {
		return *p
	}
	return fallback
}
