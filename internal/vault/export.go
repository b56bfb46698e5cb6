package vault

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ─── Export / import types ───────────────────────────────────────────────────

// ExportedLecture carries the subject name alongside the lecture so an
// import into a different database can re-attach it by name.
type ExportedLecture struct {
	ID          int64  `json:"id,omitempty"`
	SubjectID   int64  `json:"subject_id,omitempty"`
	SubjectName string `json:"subject_name"`
	LectureNo   string `json:"lecture_no"`
	Content     string `json:"content"`
}

// Snapshot is the structured export of the whole store.
type Snapshot struct {
	Subjects        []Subject         `json:"subjects"`
	Lectures        []ExportedLecture `json:"lectures"`
	Books           []Book            `json:"books"`
	ExportTimestamp string            `json:"export_timestamp"`
}

// ImportReport summarizes a best-effort structured import.
type ImportReport struct {
	SubjectsImported int      `json:"subjects_imported"`
	LecturesImported int      `json:"lectures_imported"`
	BooksImported    int      `json:"books_imported"`
	Errors           []string `json:"errors"`
}

// ─── Text export ─────────────────────────────────────────────────────────────

// ExportText renders the full catalog as a human-readable backup report.
// Output is deterministic for a given store state.
func (s *Store) ExportText() string {
	var b strings.Builder
	b.WriteString("📊 PrepVault Database Export\n")
	b.WriteString(strings.Repeat("=", 30) + "\n\n")

	subjects := s.Subjects()
	totalLectures := 0

	for _, sub := range subjects {
		fmt.Fprintf(&b, "📚 %s\n", sub.Name)
		lectures := s.Lectures(sub.ID)
		if len(lectures) == 0 {
			b.WriteString("  (No lectures)\n")
		} else {
			for _, l := range lectures {
				fmt.Fprintf(&b, "  ▶️ %s\n", l.LectureNo)
				totalLectures++
			}
		}
		b.WriteString("\n")
	}

	ncert := s.Books(BookNCERT)
	upsc := s.Books(BookUPSC)
	other := s.Books(BookOther)

	if len(ncert)+len(upsc)+len(other) > 0 {
		b.WriteString("📖 BOOKS\n")
		b.WriteString(strings.Repeat("-", 20) + "\n")

		writeShelf := func(header string, books []Book) {
			if len(books) == 0 {
				return
			}
			b.WriteString(header + "\n")
			for _, bk := range books {
				fmt.Fprintf(&b, "  📄 %s\n", bk.Name)
			}
		}
		writeShelf("📖 NCERT Wallah:", ncert)
		writeShelf("📚 UPSC Wallah:", upsc)
		writeShelf("📄 Other Books:", other)
	}

	b.WriteString("\n📊 SUMMARY\n")
	fmt.Fprintf(&b, "• %d subjects\n", len(subjects))
	fmt.Fprintf(&b, "• %d lectures\n", totalLectures)
	fmt.Fprintf(&b, "• %d books\n", len(ncert)+len(upsc)+len(other))

	return b.String()
}

// ─── Structured export / import ──────────────────────────────────────────────

// ExportJSON builds a structured snapshot of the store.
func (s *Store) ExportJSON() (*Snapshot, error) {
	snap := &Snapshot{
		Subjects: []Subject{},
		Lectures: []ExportedLecture{},
		Books:    []Book{},
	}

	if err := s.db.QueryRow("SELECT datetime('now')").Scan(&snap.ExportTimestamp); err != nil {
		return nil, fmt.Errorf("export timestamp: %w", err)
	}

	for _, sub := range s.Subjects() {
		snap.Subjects = append(snap.Subjects, Subject{ID: sub.ID, Name: sub.Name})
		for _, l := range s.Lectures(sub.ID) {
			snap.Lectures = append(snap.Lectures, ExportedLecture{
				ID:          l.ID,
				SubjectID:   l.SubjectID,
				SubjectName: sub.Name,
				LectureNo:   l.LectureNo,
				Content:     l.Content,
			})
		}
	}

	for _, typ := range BookTypes {
		snap.Books = append(snap.Books, s.Books(typ)...)
	}

	return snap, nil
}

// ImportJSON merges a snapshot into the store, item by item. Each failure
// is recorded and the import continues; lectures attach to subjects by
// name against the store's current contents and are never auto-created.
func (s *Store) ImportJSON(snap *Snapshot) *ImportReport {
	report := &ImportReport{Errors: []string{}}
	if snap == nil {
		report.Errors = append(report.Errors, "no data to import")
		return report
	}

	for _, sub := range snap.Subjects {
		if err := s.AddSubject(sub.Name); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("subject %q: %v", sub.Name, err))
			continue
		}
		report.SubjectsImported++
	}

	for _, l := range snap.Lectures {
		subjectID, err := s.SubjectID(l.SubjectName)
		if err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("subject %q not found for lecture %q", l.SubjectName, l.LectureNo))
			continue
		}
		if err := s.AddLecture(subjectID, l.LectureNo, l.Content); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("lecture %q: %v", l.LectureNo, err))
			continue
		}
		report.LecturesImported++
	}

	for _, b := range snap.Books {
		if err := s.AddBook(b.Name, b.Type, b.Content); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("book %q: %v", b.Name, err))
			continue
		}
		report.BooksImported++
	}

	s.log.Info("structured import finished",
		zap.Int("subjects", report.SubjectsImported),
		zap.Int("lectures", report.LecturesImported),
		zap.Int("books", report.BooksImported),
		zap.Int("errors", len(report.Errors)))

	return report
}
