// Package vault implements the persistent content store for PrepVault.
//
// It uses SQLite to hold subjects, their lectures, and standalone books.
// Every write runs in its own transaction; contention is handled with a
// single bounded retry rather than a global lock.
package vault

import (
	"errors"
	"time"
)

// ─── Errors ──────────────────────────────────────────────────────────────────

var (
	// ErrInvalid marks input rejected before it reaches storage:
	// empty or whitespace-only names/content, unknown book types.
	ErrInvalid = errors.New("invalid input")

	// ErrConflict marks a uniqueness violation (duplicate subject name).
	ErrConflict = errors.New("already exists")

	// ErrNotFound marks an operation targeting a row that no longer exists.
	ErrNotFound = errors.New("not found")

	// ErrBusy marks lock contention that survived the single retry.
	ErrBusy = errors.New("storage busy")
)

// ─── Types ───────────────────────────────────────────────────────────────────

// Subject is a top-level content category owning zero or more lectures.
type Subject struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Lecture is a content unit under exactly one subject. LectureNo is a
// free-text label ("Lecture 3"), not a number — ordering is lexicographic.
type Lecture struct {
	ID        int64  `json:"id"`
	SubjectID int64  `json:"subject_id"`
	LectureNo string `json:"lecture_no"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// BookType classifies a book into one of three fixed categories.
type BookType string

const (
	BookNCERT BookType = "ncert"
	BookUPSC  BookType = "upsc"
	BookOther BookType = "other"
)

// BookTypes lists the valid categories in display order.
var BookTypes = []BookType{BookNCERT, BookUPSC, BookOther}

var validBookTypes = map[BookType]bool{
	BookNCERT: true,
	BookUPSC:  true,
	BookOther: true,
}

// ValidBookType reports whether t is one of the three fixed categories.
func ValidBookType(t BookType) bool {
	return validBookTypes[t]
}

// Book is a standalone content unit with no parent.
type Book struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Type      BookType `json:"type"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"created_at,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// SearchResult is one cross-entity search hit. Snippet is the matched
// field truncated to 100 characters.
type SearchResult struct {
	Kind    string `json:"kind"` // "subject" | "lecture" | "book"
	ID      int64  `json:"id"`
	Label   string `json:"label"`
	Snippet string `json:"snippet"`
}

// LectureMatch is one lecture-scoped search hit, joined with its subject.
type LectureMatch struct {
	ID        int64  `json:"id"`
	Subject   string `json:"subject"`
	LectureNo string `json:"lecture_no"`
}

// Stats holds live aggregate counts plus on-disk size.
type Stats struct {
	Subjects   int   `json:"subjects"`
	Lectures   int   `json:"lectures"`
	NCERTBooks int   `json:"ncert_books"`
	UPSCBooks  int   `json:"upsc_books"`
	OtherBooks int   `json:"other_books"`
	TotalBooks int   `json:"total_books"`
	SizeBytes  int64 `json:"size_bytes"`
}

// ContentStats holds the extended analytics view.
type ContentStats struct {
	Subjects           int    `json:"subjects"`
	Lectures           int    `json:"lectures"`
	BusiestSubject     string `json:"busiest_subject,omitempty"`
	BusiestLectures    int    `json:"busiest_lectures,omitempty"`
	RecentSubjects7d   int    `json:"recent_subjects_7d"`
	AvgLecturesPerSubj float64
}

// Config holds store configuration.
type Config struct {
	Path         string
	SeedSubjects []string
	BusyTimeout  time.Duration
}
