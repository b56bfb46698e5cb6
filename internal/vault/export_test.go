package vault_test

import (
	"strings"
	"testing"

	"github.com/prepvault/prepvault/internal/vault"
)

func TestExportText_Report(t *testing.T) {
	s := newTestStore(t)

	id := subjectID(t, s, "🌍 Geography")
	if err := s.AddLecture(id, "Lecture 1", "monsoons"); err != nil {
		t.Fatalf("add lecture: %v", err)
	}
	if err := s.AddBook("Class 9 History", vault.BookNCERT, "ncert"); err != nil {
		t.Fatalf("add book: %v", err)
	}

	report := s.ExportText()
	for _, want := range []string{
		"🌍 Geography",
		"▶️ Lecture 1",
		"(No lectures)",
		"📖 NCERT Wallah:",
		"📄 Class 9 History",
		"• 6 subjects",
		"• 1 lectures",
		"• 1 books",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}

	if report != s.ExportText() {
		t.Error("report is not deterministic for an unchanged store")
	}
}

func TestExportJSON_RoundTrip(t *testing.T) {
	src := newTestStore(t)

	id := subjectID(t, src, "🧠 Polity")
	if err := src.AddLecture(id, "Lecture 1", "preamble"); err != nil {
		t.Fatalf("add lecture: %v", err)
	}
	if err := src.AddBook("Laxmikanth", vault.BookUPSC, "polity notes"); err != nil {
		t.Fatalf("add book: %v", err)
	}

	snap, err := src.ExportJSON()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if snap.ExportTimestamp == "" {
		t.Error("snapshot has no timestamp")
	}
	if len(snap.Subjects) != 6 || len(snap.Lectures) != 1 || len(snap.Books) != 1 {
		t.Fatalf("snapshot sizes = %d/%d/%d", len(snap.Subjects), len(snap.Lectures), len(snap.Books))
	}
	if snap.Lectures[0].SubjectName != "🧠 Polity" {
		t.Fatalf("lecture subject name = %q", snap.Lectures[0].SubjectName)
	}

	// Import into a store seeded with the same defaults: subjects collide,
	// lectures attach by name, books always insert.
	dst := newTestStore(t)
	report := dst.ImportJSON(snap)

	if report.SubjectsImported != 0 {
		t.Errorf("subjects imported = %d, want 0 (all duplicates)", report.SubjectsImported)
	}
	if len(report.Errors) != 6 {
		t.Errorf("got %d errors, want 6 duplicate-subject errors", len(report.Errors))
	}
	if report.LecturesImported != 1 {
		t.Errorf("lectures imported = %d, want 1", report.LecturesImported)
	}
	if report.BooksImported != 1 {
		t.Errorf("books imported = %d, want 1", report.BooksImported)
	}

	polity, err := dst.SubjectID("🧠 Polity")
	if err != nil {
		t.Fatalf("subject lookup: %v", err)
	}
	if got := dst.Lectures(polity); len(got) != 1 || got[0].Content != "preamble" {
		t.Fatalf("imported lectures = %+v", got)
	}
}

func TestImportJSON_MissingSubjectReported(t *testing.T) {
	s := newTestStore(t)

	snap := &vault.Snapshot{
		Lectures: []vault.ExportedLecture{
			{SubjectName: "Astronomy", LectureNo: "Lecture 1", Content: "stars"},
		},
	}
	report := s.ImportJSON(snap)

	if report.LecturesImported != 0 {
		t.Fatalf("lectures imported = %d, want 0", report.LecturesImported)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "Astronomy") {
		t.Fatalf("errors = %v, want one naming the missing subject", report.Errors)
	}
	// The absent subject must not have been auto-created.
	if _, err := s.SubjectID("Astronomy"); err == nil {
		t.Fatal("import auto-created a subject")
	}
}

func TestImportJSON_NilSnapshot(t *testing.T) {
	s := newTestStore(t)

	report := s.ImportJSON(nil)
	if len(report.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", report.Errors)
	}
}
