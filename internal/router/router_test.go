package router_test

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prepvault/prepvault/internal/menu"
	"github.com/prepvault/prepvault/internal/router"
	"github.com/prepvault/prepvault/internal/session"
	"github.com/prepvault/prepvault/internal/vault"
)

const (
	adminID int64 = 1
	userID  int64 = 2
)

var testSubjects = []string{
	"🏛️ Ancient History",
	"🕌 Medieval History",
	"🏫 Modern History",
	"🧠 Polity",
	"🌍 Geography",
	"📕 Ethics",
}

func newTestRouter(t *testing.T) (*router.Router, *vault.Store, *session.Store) {
	t.Helper()
	store, err := vault.Open(vault.Config{
		Path:         filepath.Join(t.TempDir(), "vault.db"),
		SeedSubjects: testSubjects,
	}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sessions := session.NewStore()
	r := router.New(store, sessions, "👋 Welcome to PrepVault!", nil)
	return r, store, sessions
}

func mustSubjectID(t *testing.T, store *vault.Store, name string) int64 {
	t.Helper()
	id, err := store.SubjectID(name)
	if err != nil {
		t.Fatalf("subject %q: %v", name, err)
	}
	return id
}

// ─── /start & browsing ───────────────────────────────────────────────────────

func TestHandleStart_ResetsSessionAndGreets(t *testing.T) {
	r, _, sessions := newTestRouter(t)

	sessions.SetState(adminID, session.AddingSubject)
	out := r.HandleStart(adminID, true)

	if !strings.Contains(out.Text, "Welcome") {
		t.Errorf("start text = %q, want welcome message", out.Text)
	}
	if sessions.State(adminID) != session.Normal {
		t.Error("start did not reset the session")
	}
	if len(out.Menu) == 0 {
		t.Error("start reply has no menu")
	}
}

func TestHandleAction_BrowseLectureFlow(t *testing.T) {
	r, store, _ := newTestRouter(t)

	geo := mustSubjectID(t, store, "🌍 Geography")
	if err := store.AddLecture(geo, "Lecture 1", "Monsoon systems of India"); err != nil {
		t.Fatalf("add lecture: %v", err)
	}

	out := r.HandleAction(userID, false, "lectures")
	if len(out.Menu) != len(testSubjects)+1 {
		t.Errorf("subject menu rows = %d, want %d", len(out.Menu), len(testSubjects)+1)
	}

	out = r.HandleAction(userID, false, actionFor(t, out.Menu, "🌍 Geography"))
	if !strings.Contains(out.Text, "Geography") {
		t.Errorf("subject view text = %q", out.Text)
	}

	out = r.HandleAction(userID, false, actionFor(t, out.Menu, "▶️ Lecture 1"))
	if !strings.Contains(out.Text, "Monsoon systems of India") {
		t.Errorf("lecture view text = %q, want content", out.Text)
	}
	if out.Fallback == "" {
		t.Error("lecture view has no plain-text fallback")
	}
}

func TestHandleAction_NotFoundIsOrdinaryOutcome(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out := r.HandleAction(userID, false, "lecture_9999")
	if !strings.Contains(out.Text, "no longer exists") {
		t.Errorf("missing lecture text = %q", out.Text)
	}
}

func TestHandleAction_UnknownAction(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out := r.HandleAction(userID, false, "warp_drive_7")
	if !strings.Contains(out.Text, "no longer valid") {
		t.Errorf("unknown action text = %q", out.Text)
	}
}

// ─── Admin gating ────────────────────────────────────────────────────────────

func TestHandleAction_AdminGating(t *testing.T) {
	r, _, sessions := newTestRouter(t)

	adminActions := []string{
		"admin_settings", "add_subject", "manage_subjects", "database_tools",
		"reset_database", "confirm_reset_database", "delete_subject_1",
		"change_welcome_message", "import_json",
	}
	for _, action := range adminActions {
		out := r.HandleAction(userID, false, action)
		if !strings.Contains(out.Text, "Access denied") {
			t.Errorf("%s: text = %q, want access denied", action, out.Text)
		}
		if sessions.State(userID) != session.Normal {
			t.Errorf("%s: non-admin session state changed", action)
		}
	}
}

func TestHandleText_NonAdminInFlowStateDenied(t *testing.T) {
	r, _, sessions := newTestRouter(t)

	sessions.SetState(userID, session.AddingSubject)
	out := r.HandleText(userID, false, "Economy")

	if !strings.Contains(out.Text, "Access denied") {
		t.Errorf("text = %q, want access denied", out.Text)
	}
	if sessions.State(userID) != session.AddingSubject {
		t.Error("denied turn changed session state")
	}
}

// ─── Multi-step flows ────────────────────────────────────────────────────────

func TestAddLectureFlow_EndToEnd(t *testing.T) {
	r, store, sessions := newTestRouter(t)

	geo := mustSubjectID(t, store, "🌍 Geography")

	out := r.HandleAction(adminID, true, actionFromID("add_lecture_", geo))
	if !strings.Contains(out.Text, "lecture label") {
		t.Fatalf("prompt = %q", out.Text)
	}
	if sessions.State(adminID) != session.AddingLectureNumber {
		t.Fatalf("state = %q", sessions.State(adminID))
	}

	out = r.HandleText(adminID, true, "Lecture 1")
	if sessions.State(adminID) != session.AddingLectureContent {
		t.Fatalf("state after label = %q", sessions.State(adminID))
	}

	out = r.HandleText(adminID, true, "Monsoons and rivers")
	if !strings.Contains(out.Text, "added") {
		t.Fatalf("completion text = %q", out.Text)
	}
	if sessions.State(adminID) != session.Normal {
		t.Error("state not reset after completion")
	}

	lectures := store.Lectures(geo)
	if len(lectures) != 1 || lectures[0].Content != "Monsoons and rivers" {
		t.Fatalf("stored lectures = %+v", lectures)
	}
}

func TestAddSubjectFlow_ConflictKeepsState(t *testing.T) {
	r, _, sessions := newTestRouter(t)

	r.HandleAction(adminID, true, "add_subject")
	out := r.HandleText(adminID, true, "🌍 Geography")

	if !strings.Contains(out.Text, "already exists") {
		t.Errorf("conflict text = %q", out.Text)
	}
	if sessions.State(adminID) != session.AddingSubject {
		t.Error("conflict reset the flow; retry should stay open")
	}

	out = r.HandleText(adminID, true, "Economy")
	if !strings.Contains(out.Text, "added") {
		t.Errorf("retry text = %q", out.Text)
	}
	if sessions.State(adminID) != session.Normal {
		t.Error("state not reset after successful retry")
	}
}

func TestHandleText_MissingScratchExpiresSession(t *testing.T) {
	r, _, sessions := newTestRouter(t)

	// Mid-flow state with no stashed subject id, as after a sweep.
	sessions.SetState(adminID, session.AddingLectureContent)
	out := r.HandleText(adminID, true, "content with nowhere to go")

	if !strings.Contains(out.Text, "Session expired") {
		t.Errorf("text = %q, want session expired", out.Text)
	}
	if sessions.State(adminID) != session.Normal {
		t.Error("session not reset after expiry")
	}
}

func TestHandleText_NormalStateNudgesToButtons(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out := r.HandleText(userID, false, "hello?")
	if !strings.Contains(out.Text, "buttons") {
		t.Errorf("text = %q", out.Text)
	}
}

func TestChangeWelcomeFlow(t *testing.T) {
	r, _, _ := newTestRouter(t)

	r.HandleAction(adminID, true, "change_welcome_message")
	out := r.HandleText(adminID, true, "New greeting!")
	if !strings.Contains(out.Text, "updated") {
		t.Fatalf("text = %q", out.Text)
	}

	if got := r.Welcome(); got != "New greeting!" {
		t.Fatalf("Welcome() = %q", got)
	}
	start := r.HandleStart(userID, false)
	if !strings.Contains(start.Text, "New greeting!") {
		t.Errorf("start after change = %q", start.Text)
	}
}

func TestDeleteSubjectFlow_Confirmation(t *testing.T) {
	r, store, _ := newTestRouter(t)

	geo := mustSubjectID(t, store, "🌍 Geography")

	out := r.HandleAction(adminID, true, actionFromID("delete_subject_", geo))
	if !strings.Contains(out.Text, "Delete") {
		t.Fatalf("confirm prompt = %q", out.Text)
	}
	// The subject must survive until the confirm tap.
	if _, err := store.SubjectName(geo); err != nil {
		t.Fatal("subject deleted before confirmation")
	}

	out = r.HandleAction(adminID, true, actionFromID("confirm_delete_subject_", geo))
	if !strings.Contains(out.Text, "deleted") {
		t.Fatalf("completion = %q", out.Text)
	}
	if _, err := store.SubjectName(geo); err == nil {
		t.Fatal("subject survived confirmed delete")
	}
}

func TestAddBookFlow(t *testing.T) {
	r, store, sessions := newTestRouter(t)

	r.HandleAction(adminID, true, "add_upsc_book")
	if sessions.State(adminID) != session.AddingBookName {
		t.Fatalf("state = %q", sessions.State(adminID))
	}
	r.HandleText(adminID, true, "Laxmikanth")
	out := r.HandleText(adminID, true, "Indian polity, seventh edition")
	if !strings.Contains(out.Text, "added") {
		t.Fatalf("completion = %q", out.Text)
	}

	books := store.Books(vault.BookUPSC)
	if len(books) != 1 || books[0].Name != "Laxmikanth" {
		t.Fatalf("stored books = %+v", books)
	}
}

func TestSearchContentFlow(t *testing.T) {
	r, store, sessions := newTestRouter(t)

	geo := mustSubjectID(t, store, "🌍 Geography")
	if err := store.AddLecture(geo, "Lecture 1", "The monsoon arrives in June"); err != nil {
		t.Fatalf("add: %v", err)
	}

	r.HandleAction(adminID, true, "search_content")
	out := r.HandleText(adminID, true, "monsoon")

	if !strings.Contains(out.Text, "1 matches") {
		t.Errorf("search reply = %q", out.Text)
	}
	if sessions.State(adminID) != session.Normal {
		t.Error("search did not reset state")
	}
}

func TestImportJSONFlow_BadInputKeepsState(t *testing.T) {
	r, _, sessions := newTestRouter(t)

	r.HandleAction(adminID, true, "import_json")
	out := r.HandleText(adminID, true, "this is not json")
	if !strings.Contains(out.Text, "not valid JSON") {
		t.Fatalf("reply = %q", out.Text)
	}
	if sessions.State(adminID) != session.ImportingJSON {
		t.Error("invalid JSON reset the flow")
	}

	out = r.HandleText(adminID, true, `{"subjects":[{"name":"Economy"}],"lectures":[],"books":[]}`)
	if !strings.Contains(out.Text, "1 subjects") {
		t.Fatalf("import reply = %q", out.Text)
	}
	if sessions.State(adminID) != session.Normal {
		t.Error("import did not reset state")
	}
}

func TestResetFlow_RequiresConfirmation(t *testing.T) {
	r, store, _ := newTestRouter(t)

	if err := store.AddSubject("Economy"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out := r.HandleAction(adminID, true, "reset_database")
	if !strings.Contains(out.Text, "Are you sure") {
		t.Fatalf("prompt = %q", out.Text)
	}
	if got := len(store.Subjects()); got != len(testSubjects)+1 {
		t.Fatal("reset ran before confirmation")
	}

	out = r.HandleAction(adminID, true, "confirm_reset_database")
	if !strings.Contains(out.Text, "reset") {
		t.Fatalf("completion = %q", out.Text)
	}
	if got := len(store.Subjects()); got != len(testSubjects) {
		t.Fatalf("subjects after reset = %d, want %d", got, len(testSubjects))
	}
}

func TestBackup_AttachesDocument(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out := r.HandleAction(adminID, true, "backup_database")
	if out.Document == nil {
		t.Fatal("backup has no document")
	}
	if !strings.HasSuffix(out.Document.Name, ".txt") {
		t.Errorf("document name = %q", out.Document.Name)
	}
	if !strings.Contains(string(out.Document.Data), "SUMMARY") {
		t.Error("backup document missing report body")
	}
}

func TestExportJSON_AttachesSnapshot(t *testing.T) {
	r, _, _ := newTestRouter(t)

	out := r.HandleAction(adminID, true, "export_json")
	if out.Document == nil {
		t.Fatal("export has no document")
	}
	if !strings.HasSuffix(out.Document.Name, ".json") {
		t.Errorf("document name = %q", out.Document.Name)
	}
	if !strings.Contains(string(out.Document.Data), "export_timestamp") {
		t.Error("export document missing snapshot body")
	}
}

// ─── Menu / parser contract ──────────────────────────────────────────────────

func TestParseAction_RoundTripsEveryMenu(t *testing.T) {
	_, store, _ := newTestRouter(t)

	geo := mustSubjectID(t, store, "🌍 Geography")
	if err := store.AddLecture(geo, "Lecture 1", "content"); err != nil {
		t.Fatalf("add lecture: %v", err)
	}
	if err := store.AddBook("Laxmikanth", vault.BookUPSC, "content"); err != nil {
		t.Fatalf("add book: %v", err)
	}
	subjects := store.Subjects()
	lectures := store.Lectures(geo)
	books := store.Books(vault.BookUPSC)

	menus := map[string]menu.Menu{
		"Main":                  menu.Main(true),
		"Subjects":              menu.Subjects(subjects, true),
		"Lectures":              menu.Lectures(geo, lectures, true),
		"LectureView":           menu.LectureView(geo),
		"Books":                 menu.Books(true),
		"BookShelf":             menu.BookShelf(vault.BookUPSC, books, true),
		"BookView":              menu.BookView(vault.BookNCERT),
		"Admin":                 menu.Admin(),
		"ManageSubjects":        menu.ManageSubjects(subjects),
		"ManageLectureSubjects": menu.ManageLectureSubjects(subjects),
		"ManageLectures":        menu.ManageLectures(geo, lectures),
		"ManageBooks":           menu.ManageBooks(),
		"ManageBookList":        menu.ManageBookList(vault.BookUPSC, books),
		"DatabaseTools":         menu.DatabaseTools(),
		"BotSettings":           menu.BotSettings(),
		"ConfirmSubject":        menu.Confirm("delete_subject", geo),
		"ConfirmBook":           menu.Confirm("delete_upsc_book", books[0].ID),
		"DangerConfirm":         menu.DangerConfirm("reset_database"),
	}

	for name, m := range menus {
		for _, row := range m {
			for _, b := range row {
				if _, err := router.ParseAction(b.Action); err != nil {
					t.Errorf("%s: button %q action %q does not parse: %v", name, b.Label, b.Action, err)
				}
			}
		}
	}
}

func TestParseAction_RejectsGarbage(t *testing.T) {
	for _, id := range []string{"", "subject_", "subject_abc", "confirm_", "magazine_book_1"} {
		if _, err := router.ParseAction(id); err == nil {
			t.Errorf("ParseAction(%q) accepted garbage", id)
		}
	}
}

// actionFor finds the action id behind a button label.
func actionFor(t *testing.T, m menu.Menu, label string) string {
	t.Helper()
	for _, row := range m {
		for _, b := range row {
			if b.Label == label {
				return b.Action
			}
		}
	}
	t.Fatalf("no button labelled %q", label)
	return ""
}

func actionFromID(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}
