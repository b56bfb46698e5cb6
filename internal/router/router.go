// Package router turns button presses and free-text messages into
// replies. It owns the conversation flows: every multi-step admin
// workflow, the browse surface, and the mapping from storage errors to
// user-facing messages.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prepvault/prepvault/internal/markdown"
	"github.com/prepvault/prepvault/internal/menu"
	"github.com/prepvault/prepvault/internal/session"
	"github.com/prepvault/prepvault/internal/vault"
)

// Document is a file artifact attached to a reply.
type Document struct {
	Name string
	Data []byte
}

// Outcome is one fully-formed reply. Fallback carries the uncleaned
// text for the transport's plain-text retry when markdown rendering
// fails; empty Fallback means Text is already safe.
type Outcome struct {
	Text     string
	Fallback string
	Menu     menu.Menu
	Document *Document
}

// Router dispatches conversation turns against the vault and the
// session store. Safe for concurrent use.
type Router struct {
	store    *vault.Store
	sessions *session.Store
	log      *zap.Logger

	welcomeMu sync.RWMutex
	welcome   string

	startedAt time.Time
}

// New builds a Router with the given initial welcome message.
func New(store *vault.Store, sessions *session.Store, welcome string, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		store:     store,
		sessions:  sessions,
		log:       log,
		welcome:   welcome,
		startedAt: time.Now(),
	}
}

// Welcome returns the current welcome message.
func (r *Router) Welcome() string {
	r.welcomeMu.RLock()
	defer r.welcomeMu.RUnlock()
	return r.welcome
}

// SetWelcome replaces the welcome message for all future /start turns.
func (r *Router) SetWelcome(text string) {
	r.welcomeMu.Lock()
	defer r.welcomeMu.Unlock()
	r.welcome = text
}

// ─── Entry points ────────────────────────────────────────────────────────────

// HandleStart serves /start: any in-progress flow is dropped and the
// user lands on the main menu.
func (r *Router) HandleStart(userID int64, isAdmin bool) Outcome {
	r.sessions.Reset(userID)
	w := r.Welcome()
	return Outcome{
		Text:     markdown.Clean(w),
		Fallback: w,
		Menu:     menu.Main(isAdmin),
	}
}

// HandleAction serves one button press.
func (r *Router) HandleAction(userID int64, isAdmin bool, actionID string) Outcome {
	act, err := ParseAction(actionID)
	if err != nil {
		r.log.Warn("unparseable action", zap.String("action", actionID), zap.Int64("user", userID))
		return Outcome{
			Text: "❌ That button is no longer valid. Use the menu below.",
			Menu: menu.Main(isAdmin),
		}
	}

	if adminOnly(act.Kind) && !isAdmin {
		return r.accessDenied(isAdmin)
	}

	switch act.Kind {
	case KindMainMenu:
		r.sessions.Reset(userID)
		return Outcome{Text: "📂 Main menu:", Menu: menu.Main(isAdmin)}
	case KindLectures:
		return Outcome{
			Text: "📚 Choose a subject:",
			Menu: menu.Subjects(r.store.Subjects(), isAdmin),
		}
	case KindSubject:
		return r.viewSubject(act.ID, isAdmin)
	case KindLecture:
		return r.viewLecture(act.ID, isAdmin)
	case KindBooks:
		return Outcome{Text: "📘 Book collections:", Menu: menu.Books(isAdmin)}
	case KindShelf:
		return Outcome{
			Text: "📖 Pick a book:",
			Menu: menu.BookShelf(act.BookType, r.store.Books(act.BookType), isAdmin),
		}
	case KindBook:
		return r.viewBook(act.ID, act.BookType, isAdmin)

	case KindAdmin:
		return r.adminPanel()
	case KindAddSubject:
		r.sessions.SetState(userID, session.AddingSubject)
		return Outcome{Text: "➕ Send the name of the new subject:"}
	case KindAddLecture:
		return r.startAddLecture(userID, act.ID)
	case KindManageSubjects:
		return Outcome{
			Text: "📚 Manage subjects:",
			Menu: menu.ManageSubjects(r.store.Subjects()),
		}
	case KindManageLectures:
		return Outcome{
			Text: "📖 Pick a subject to manage its lectures:",
			Menu: menu.ManageLectureSubjects(r.store.Subjects()),
		}
	case KindManageLecturesSubject:
		return r.manageLectures(act.ID)
	case KindRenameSubject:
		return r.startRenameSubject(userID, act.ID)
	case KindDeleteSubject:
		return r.confirmDeleteSubject(act.ID)
	case KindConfirmDeleteSubject:
		return r.deleteSubject(userID, act.ID)
	case KindEditLecture:
		return r.startEditLecture(userID, act.ID)
	case KindDeleteLecture:
		return r.confirmDeleteLecture(act.ID)
	case KindConfirmDeleteLecture:
		return r.deleteLecture(userID, act.ID)

	case KindManageBooks:
		return Outcome{Text: "📘 Manage books:", Menu: menu.ManageBooks()}
	case KindManageShelf:
		return Outcome{
			Text: fmt.Sprintf("📖 Manage %s books:", act.BookType),
			Menu: menu.ManageBookList(act.BookType, r.store.Books(act.BookType)),
		}
	case KindAddBook:
		r.sessions.SetScratch(userID, "book_type", string(act.BookType))
		r.sessions.SetState(userID, session.AddingBookName)
		return Outcome{Text: "➕ Send the name of the new book:"}
	case KindEditBook:
		return r.startEditBook(userID, act.ID)
	case KindDeleteBook:
		return r.confirmDeleteBook(act.ID, act.BookType)
	case KindConfirmDeleteBook:
		return r.deleteBook(userID, act.ID)

	case KindViewAllData:
		return r.viewAllData()
	case KindDatabaseTools:
		return Outcome{Text: "🗄️ Database tools:", Menu: menu.DatabaseTools()}
	case KindBackup:
		return r.backup()
	case KindExportJSON:
		return r.exportJSON()
	case KindOptimize:
		return r.optimize()
	case KindReset:
		return Outcome{
			Text: "⚠️ This deletes every subject, lecture, and book, then restores the default subjects. Are you sure?",
			Menu: menu.DangerConfirm("reset_database"),
		}
	case KindConfirmReset:
		return r.reset(userID)

	case KindBotSettings:
		return Outcome{Text: "⚙️ Bot settings:", Menu: menu.BotSettings()}
	case KindChangeWelcome:
		r.sessions.SetState(userID, session.ChangingWelcome)
		return Outcome{Text: "💬 Send the new welcome message:"}
	case KindBotInfo:
		return r.botInfo()
	case KindAnalytics:
		return r.analytics()

	case KindSearchContent:
		r.sessions.SetState(userID, session.SearchingContent)
		return Outcome{Text: "🔍 Send a search term:"}
	case KindSearchLectures:
		r.sessions.SetState(userID, session.SearchingLectures)
		return Outcome{Text: "🔎 Send a lecture search term:"}
	case KindImportJSON:
		r.sessions.SetState(userID, session.ImportingJSON)
		return Outcome{Text: "📁 Paste the JSON export to import:"}
	}

	return Outcome{Text: "❌ That button is no longer valid.", Menu: menu.Main(isAdmin)}
}

// HandleText serves one free-text message, dispatched on session state.
func (r *Router) HandleText(userID int64, isAdmin bool, text string) Outcome {
	state := r.sessions.State(userID)
	if state == session.Normal {
		return Outcome{
			Text: "Use the buttons to navigate.",
			Menu: menu.Main(isAdmin),
		}
	}

	// Every non-browse state belongs to an admin flow.
	if !isAdmin {
		return r.accessDenied(isAdmin)
	}

	switch state {
	case session.AddingSubject:
		return r.finishAddSubject(userID, text)
	case session.AddingLectureNumber:
		return r.stashLectureNumber(userID, text)
	case session.AddingLectureContent:
		return r.finishAddLecture(userID, text)
	case session.EditingLecture:
		return r.finishEditLecture(userID, text)
	case session.RenamingSubject:
		return r.finishRenameSubject(userID, text)
	case session.AddingBookName:
		return r.stashBookName(userID, text)
	case session.AddingBookContent:
		return r.finishAddBook(userID, text)
	case session.EditingBook:
		return r.finishEditBook(userID, text)
	case session.ChangingWelcome:
		return r.finishChangeWelcome(userID, text)
	case session.SearchingContent:
		return r.searchContent(userID, text)
	case session.SearchingLectures:
		return r.searchLectures(userID, text)
	case session.ImportingJSON:
		return r.importJSON(userID, text)
	}

	r.sessions.Reset(userID)
	return Outcome{Text: "Use the buttons to navigate.", Menu: menu.Main(isAdmin)}
}

// ─── Shared outcomes ─────────────────────────────────────────────────────────

func (r *Router) accessDenied(isAdmin bool) Outcome {
	return Outcome{
		Text: "🚫 Access denied. This action is for the administrator.",
		Menu: menu.Main(isAdmin),
	}
}

// sessionExpired resets the user and tells them to start over. Used when
// a mid-flow scratch value has gone missing.
func (r *Router) sessionExpired(userID int64) Outcome {
	r.sessions.Reset(userID)
	return Outcome{
		Text: "⌛ Session expired. Please start again from the menu.",
		Menu: menu.Main(true),
	}
}

func notFoundOutcome(what string, isAdmin bool) Outcome {
	return Outcome{
		Text: fmt.Sprintf("❌ That %s no longer exists.", what),
		Menu: menu.Main(isAdmin),
	}
}

// ─── Browse ──────────────────────────────────────────────────────────────────

func (r *Router) viewSubject(id int64, isAdmin bool) Outcome {
	name, err := r.store.SubjectName(id)
	if err != nil {
		return notFoundOutcome("subject", isAdmin)
	}
	lectures := r.store.Lectures(id)
	text := fmt.Sprintf("📚 %s", name)
	if len(lectures) == 0 {
		text += "\n\nNo lectures here yet."
	}
	return Outcome{
		Text:     markdown.Clean(text),
		Fallback: text,
		Menu:     menu.Lectures(id, lectures, isAdmin),
	}
}

func (r *Router) viewLecture(id int64, isAdmin bool) Outcome {
	l, err := r.store.Lecture(id)
	if err != nil {
		return notFoundOutcome("lecture", isAdmin)
	}
	text := fmt.Sprintf("▶️ %s\n\n%s", l.LectureNo, l.Content)
	return Outcome{
		Text:     markdown.Clean(text),
		Fallback: text,
		Menu:     menu.LectureView(l.SubjectID),
	}
}

func (r *Router) viewBook(id int64, typ vault.BookType, isAdmin bool) Outcome {
	b, err := r.store.Book(id)
	if err != nil {
		return notFoundOutcome("book", isAdmin)
	}
	text := fmt.Sprintf("📖 %s\n\n%s", b.Name, b.Content)
	return Outcome{
		Text:     markdown.Clean(text),
		Fallback: text,
		Menu:     menu.BookView(typ),
	}
}

// ─── Admin panel & views ─────────────────────────────────────────────────────

func (r *Router) adminPanel() Outcome {
	text := "🛠️ Admin panel"
	if st, err := r.store.Stats(); err == nil {
		text = fmt.Sprintf(
			"🛠️ Admin panel\n\n📚 %d subjects · 📖 %d lectures · 📘 %d books\n💽 %.1f KB on disk",
			st.Subjects, st.Lectures, st.TotalBooks, float64(st.SizeBytes)/1024,
		)
	} else {
		r.log.Error("admin panel stats", zap.Error(err))
	}
	return Outcome{Text: text, Menu: menu.Admin()}
}

func (r *Router) viewAllData() Outcome {
	var b strings.Builder
	b.WriteString("🧾 All content\n\n")
	for _, sub := range r.store.Subjects() {
		fmt.Fprintf(&b, "📚 %s — %d lectures\n", sub.Name, len(r.store.Lectures(sub.ID)))
	}
	for _, typ := range vault.BookTypes {
		books := r.store.Books(typ)
		if len(books) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n📘 %s books:\n", typ)
		for _, bk := range books {
			fmt.Fprintf(&b, "  📄 %s\n", bk.Name)
		}
	}
	text := b.String()
	return Outcome{Text: markdown.Clean(text), Fallback: text, Menu: menu.Admin()}
}

func (r *Router) botInfo() Outcome {
	uptime := time.Since(r.startedAt).Round(time.Second)
	text := fmt.Sprintf(
		"🤖 Bot info\n\n⏱️ Uptime: %s\n👥 Active sessions: %d\n💬 Welcome message: %d chars",
		uptime, r.sessions.Len(), len(r.Welcome()),
	)
	return Outcome{Text: text, Menu: menu.BotSettings()}
}

func (r *Router) analytics() Outcome {
	cs, err := r.store.ContentStatistics()
	if err != nil {
		r.log.Error("analytics", zap.Error(err))
		return Outcome{Text: "❌ Could not compute analytics.", Menu: menu.Admin()}
	}
	text := fmt.Sprintf(
		"📈 Analytics\n\n📚 Subjects: %d\n📖 Lectures: %d\n🏆 Busiest subject: %s (%d lectures)\n🆕 Subjects added this week: %d\n📊 Avg lectures per subject: %.1f",
		cs.Subjects, cs.Lectures, cs.BusiestSubject, cs.BusiestLectures,
		cs.RecentSubjects7d, cs.AvgLecturesPerSubj,
	)
	return Outcome{Text: markdown.Clean(text), Fallback: text, Menu: menu.Admin()}
}

// ─── Database tools ──────────────────────────────────────────────────────────

func (r *Router) backup() Outcome {
	report := r.store.ExportText()
	name := fmt.Sprintf("prepvault_backup_%s.txt", time.Now().Format("2006-01-02"))
	return Outcome{
		Text:     "💾 Backup created.",
		Menu:     menu.DatabaseTools(),
		Document: &Document{Name: name, Data: []byte(report)},
	}
}

func (r *Router) exportJSON() Outcome {
	snap, err := r.store.ExportJSON()
	if err != nil {
		r.log.Error("export json", zap.Error(err))
		return Outcome{Text: "❌ Export failed. Try again later.", Menu: menu.DatabaseTools()}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		r.log.Error("export json", zap.Error(err))
		return Outcome{Text: "❌ Export failed. Try again later.", Menu: menu.DatabaseTools()}
	}
	name := fmt.Sprintf("prepvault_export_%s.json", time.Now().Format("2006-01-02"))
	return Outcome{
		Text:     "📤 JSON export created. Feed it back through Import JSON to restore.",
		Menu:     menu.DatabaseTools(),
		Document: &Document{Name: name, Data: data},
	}
}

func (r *Router) optimize() Outcome {
	if err := r.store.Vacuum(); err != nil {
		r.log.Error("optimize", zap.Error(err))
		return Outcome{Text: "❌ Optimization failed. Try again later.", Menu: menu.DatabaseTools()}
	}
	return Outcome{Text: "⚡ Database optimized.", Menu: menu.DatabaseTools()}
}

func (r *Router) reset(userID int64) Outcome {
	if err := r.store.Reset(); err != nil {
		r.log.Error("reset", zap.Error(err))
		return Outcome{Text: "❌ Reset failed. Try again later.", Menu: menu.DatabaseTools()}
	}
	r.sessions.Reset(userID)
	return Outcome{
		Text: "🗑️ Database reset. Default subjects restored.",
		Menu: menu.Admin(),
	}
}

// ─── Subject flows ───────────────────────────────────────────────────────────

func (r *Router) finishAddSubject(userID int64, name string) Outcome {
	err := r.store.AddSubject(name)
	switch {
	case err == nil:
		r.sessions.Reset(userID)
		return Outcome{
			Text: fmt.Sprintf("✅ Subject %q added.", strings.TrimSpace(name)),
			Menu: menu.ManageSubjects(r.store.Subjects()),
		}
	case errors.Is(err, vault.ErrInvalid):
		return Outcome{Text: "❌ Subject name cannot be empty. Send another name:"}
	case errors.Is(err, vault.ErrConflict):
		return Outcome{Text: "❌ That subject already exists. Send another name:"}
	case errors.Is(err, vault.ErrBusy):
		return Outcome{Text: "⏳ Storage is busy. Send the name again:"}
	default:
		r.log.Error("add subject", zap.Error(err))
		r.sessions.Reset(userID)
		return Outcome{Text: "❌ Something went wrong. Please try again.", Menu: menu.Main(true)}
	}
}

func (r *Router) startRenameSubject(userID, subjectID int64) Outcome {
	name, err := r.store.SubjectName(subjectID)
	if err != nil {
		return notFoundOutcome("subject", true)
	}
	r.sessions.SetScratch(userID, "subject_id", strconv.FormatInt(subjectID, 10))
	r.sessions.SetState(userID, session.RenamingSubject)
	return Outcome{Text: fmt.Sprintf("📝 Send the new name for %q:", name)}
}

func (r *Router) finishRenameSubject(userID int64, newName string) Outcome {
	idStr, ok := r.sessions.Scratch(userID, "subject_id")
	if !ok {
		return r.sessionExpired(userID)
	}
	id, _ := strconv.ParseInt(idStr, 10, 64)

	err := r.store.RenameSubject(id, newName)
	switch {
	case err == nil:
		r.sessions.Reset(userID)
		return Outcome{
			Text: fmt.Sprintf("✅ Subject renamed to %q.", strings.TrimSpace(newName)),
			Menu: menu.ManageSubjects(r.store.Subjects()),
		}
	case errors.Is(err, vault.ErrInvalid):
		return Outcome{Text: "❌ Name cannot be empty. Send another name:"}
	case errors.Is(err, vault.ErrConflict):
		return Outcome{Text: "❌ That name is already taken. Send another name:"}
	case errors.Is(err, vault.ErrBusy):
		return Outcome{Text: "⏳ Storage is busy. Send the name again:"}
	case errors.Is(err, vault.ErrNotFound):
		r.sessions.Reset(userID)
		return notFoundOutcome("subject", true)
	default:
		r.log.Error("rename subject", zap.Error(err))
		r.sessions.Reset(userID)
		return Outcome{Text: "❌ Something went wrong. Please try again.", Menu: menu.Main(true)}
	}
}

func (r *Router) confirmDeleteSubject(id int64) Outcome {
	name, err := r.store.SubjectName(id)
	if err != nil {
		return notFoundOutcome("subject", true)
	}
	return Outcome{
		Text: fmt.Sprintf("⚠️ Delete %q and all its lectures?", name),
		Menu: menu.Confirm("delete_subject", id),
	}
}

func (r *Router) deleteSubject(userID, id int64) Outcome {
	err := r.store.DeleteSubject(id)
	switch {
	case err == nil:
		return Outcome{Text: "🗑️ Subject deleted.", Menu: menu.ManageSubjects(r.store.Subjects())}
	case errors.Is(err, vault.ErrNotFound):
		return Outcome{Text: "ℹ️ That subject was already deleted.", Menu: menu.ManageSubjects(r.store.Subjects())}
	case errors.Is(err, vault.ErrBusy):
		return Outcome{Text: "⏳ Storage is busy. Tap confirm again.", Menu: menu.Confirm("delete_subject", id)}
	default:
		r.log.Error("delete subject", zap.Error(err))
		return Outcome{Text: "❌ Something went wrong. Please try again.", Menu: menu.Admin()}
	}
}

// ─── Lecture flows ───────────────────────────────────────────────────────────

func (r *Router) manageLectures(subjectID int64) Outcome {
	name, err := r.store.SubjectName(subjectID)
	if err != nil {
		return notFoundOutcome("subject", true)
	}
	return Outcome{
		Text: fmt.Sprintf("📖 Lectures in %s:", name),
		Menu: menu.ManageLectures(subjectID, r.store.Lectures(subjectID)),
	}
}

func (r *Router) startAddLecture(userID, subjectID int64) Outcome {
	name, err := r.store.SubjectName(subjectID)
	if err != nil {
		return notFoundOutcome("subject", true)
	}
	r.sessions.SetScratch(userID, "subject_id", strconv.FormatInt(subjectID, 10))
	r.sessions.SetState(userID, session.AddingLectureNumber)
	return Outcome{Text: fmt.Sprintf("➕ Adding a lecture to %s.\nSend the lecture label (e.g. \"Lecture 1\"):", name)}
}

func (r *Router) stashLectureNumber(userID int64, text string) Outcome {
	if _, ok := r.sessions.Scratch(userID, "subject_id"); !ok {
		return r.sessionExpired(userID)
	}
	label := strings.TrimSpace(text)
	if label == "" {
		return Outcome{Text: "❌ Lecture label cannot be empty. Send it again:"}
	}
	r.sessions.SetScratch(userID, "lecture_no", label)
	r.sessions.SetState(userID, session.AddingLectureContent)
	return Outcome{Text: "📝 Now send the lecture content:"}
}

func (r *Router) finishAddLecture(userID int64, content string) Outcome {
	idStr, okID := r.sessions.Scratch(userID, "subject_id")
	label, okNo := r.sessions.Scratch(userID, "lecture_no")
	if !okID || !okNo {
		return r.sessionExpired(userID)
	}
	subjectID, _ := strconv.ParseInt(idStr, 10, 64)

	err := r.store.AddLecture(subjectID, label, content)
	switch {
	case err == nil:
		r.sessions.Reset(userID)
		return Outcome{
			Text: fmt.Sprintf("✅ %s added.", label),
			Menu: menu.Lectures(subjectID, r.store.Lectures(subjectID), true),
		}
	case errors.Is(err, vault.ErrInvalid):
		return Outcome{Text: "❌ Content cannot be empty. Send the lecture content:"}
	case errors.Is(err, vault.ErrBusy):
		return Outcome{Text: "⏳ Storage is busy. Send the content again:"}
	case errors.Is(err, vault.ErrNotFound):
		r.sessions.Reset(userID)
		return notFoundOutcome("subject", true)
	default:
		r.log.Error("add lecture", zap.Error(err))
		r.sessions.Reset(userID)
		return Outcome{Text: "❌ Something went wrong. Please try again.", Menu: menu.Main(true)}
	}
}

func (r *Router) startEditLecture(userID, lectureID int64) Outcome {
	l, err := r.store.Lecture(lectureID)
	if err != nil {
		return notFoundOutcome("lecture", true)
	}
	r.sessions.SetScratch(userID, "lecture_id", strconv.FormatInt(lectureID, 10))
	r.sessions.SetState(userID, session.EditingLecture)
	return Outcome{Text: fmt.Sprintf("📝 Send the new content for %s:", l.LectureNo)}
}

func (r *Router) finishEditLecture(userID int64, content string) Outcome {
	idStr, ok := r.sessions.Scratch(userID, "lecture_id")
	if !ok {
		return r.sessionExpired(userID)
	}
	id, _ := strconv.ParseInt(idStr, 10, 64)

	err := r.store.UpdateLecture(id, content)
	switch {
	case err == nil:
		r.sessions.Reset(userID)
		return Outcome{Text: "✅ Lecture updated.", Menu: menu.Admin()}
	case errors.Is(err, vault.ErrInvalid):
		return Outcome{Text: "❌ Content cannot be empty. Send the new content:"}
	case errors.Is(err, vault.ErrBusy):
		return Outcome{Text: "⏳ Storage is busy. Send the content again:"}
	case errors.Is(err, vault.ErrNotFound):
		r.sessions.Reset(userID)
		return notFoundOutcome("lecture", true)
	default:
		r.log.Error("edit lecture", zap.Error(err))
		r.sessions.Reset(userID)
		return Outcome{Text: "❌ Something went wrong. Please try again.", Menu: menu.Main(true)}
	}
}

func (r *Router) confirmDeleteLecture(id int64) Outcome {
	l, err := r.store.Lecture(id)
	if err != nil {
		return notFoundOutcome("lecture", true)
	}
	return Outcome{
		Text: fmt.Sprintf("⚠️ Delete %s?", l.LectureNo),
		Menu: menu.Confirm("delete_lecture", id),
	}
}

func (r *Router) deleteLecture(userID, id int64) Outcome {
	err := r.store.DeleteLecture(id)
	switch {
	case err == nil:
		return Outcome{Text: "🗑️ Lecture deleted.", Menu: menu.Admin()}
	case errors.Is(err, vault.ErrNotFound):
		return Outcome{Text: "ℹ️ That lecture was already deleted.", Menu: menu.Admin()}
	case errors.Is(err, vault.ErrBusy):
		return Outcome{Text: "⏳ Storage is busy. Tap confirm again.", Menu: menu.Confirm("delete_lecture", id)}
	default:
		r.log.Error("delete lecture", zap.Error(err))
		return Outcome{Text: "❌ Something went wrong. Please try again.", Menu: menu.Admin()}
	}
}

// ─── Book flows ──────────────────────────────────────────────────────────────

func (r *Router) stashBookName(userID int64, text string) Outcome {
	if _, ok := r.sessions.Scratch(userID, "book_type"); !ok {
		return r.sessionExpired(userID)
	}
	name := strings.TrimSpace(text)
	if name == "" {
		return Outcome{Text: "❌ Book name cannot be empty. Send it again:"}
	}
	r.sessions.SetScratch(userID, "book_name", name)
	r.sessions.SetState(userID, session.AddingBookContent)
	return Outcome{Text: "📝 Now send the book content:"}
}

func (r *Router) finishAddBook(userID int64, content string) Outcome {
	typStr, okT := r.sessions.Scratch(userID, "book_type")
	name, okN := r.sessions.Scratch(userID, "book_name")
	if !okT || !okN {
		return r.sessionExpired(userID)
	}
	typ := vault.BookType(typStr)

	err := r.store.AddBook(name, typ, content)
	switch {
	case err == nil:
		r.sessions.Reset(userID)
		return Outcome{
			Text: fmt.Sprintf("✅ Book %q added.", name),
			Menu: menu.BookShelf(typ, r.store.Books(typ), true),
		}
	case errors.Is(err, vault.ErrInvalid):
		return Outcome{Text: "❌ Content cannot be empty. Send the book content:"}
	case errors.Is(err, vault.ErrBusy):
		return Outcome{Text: "⏳ Storage is busy. Send the content again:"}
	default:
		r.log.Error("add book", zap.Error(err))
		r.sessions.Reset(userID)
		return Outcome{Text: "❌ Something went wrong. Please try again.", Menu: menu.Main(true)}
	}
}

func (r *Router) startEditBook(userID, bookID int64) Outcome {
	b, err := r.store.Book(bookID)
	if err != nil {
		return notFoundOutcome("book", true)
	}
	r.sessions.SetScratch(userID, "book_id", strconv.FormatInt(bookID, 10))
	r.sessions.SetState(userID, session.EditingBook)
	return Outcome{Text: fmt.Sprintf("📝 Send the new content for %q:", b.Name)}
}

func (r *Router) finishEditBook(userID int64, content string) Outcome {
	idStr, ok := r.sessions.Scratch(userID, "book_id")
	if !ok {
		return r.sessionExpired(userID)
	}
	id, _ := strconv.ParseInt(idStr, 10, 64)

	err := r.store.UpdateBook(id, content)
	switch {
	case err == nil:
		r.sessions.Reset(userID)
		return Outcome{Text: "✅ Book updated.", Menu: menu.ManageBooks()}
	case errors.Is(err, vault.ErrInvalid):
		return Outcome{Text: "❌ Content cannot be empty. Send the new content:"}
	case errors.Is(err, vault.ErrBusy):
		return Outcome{Text: "⏳ Storage is busy. Send the content again:"}
	case errors.Is(err, vault.ErrNotFound):
		r.sessions.Reset(userID)
		return notFoundOutcome("book", true)
	default:
		r.log.Error("edit book", zap.Error(err))
		r.sessions.Reset(userID)
		return Outcome{Text: "❌ Something went wrong. Please try again.", Menu: menu.Main(true)}
	}
}

func (r *Router) confirmDeleteBook(id int64, typ vault.BookType) Outcome {
	b, err := r.store.Book(id)
	if err != nil {
		return notFoundOutcome("book", true)
	}
	return Outcome{
		Text: fmt.Sprintf("⚠️ Delete %q?", b.Name),
		Menu: menu.Confirm(fmt.Sprintf("delete_%s_book", typ), id),
	}
}

func (r *Router) deleteBook(userID, id int64) Outcome {
	err := r.store.DeleteBook(id)
	switch {
	case err == nil:
		return Outcome{Text: "🗑️ Book deleted.", Menu: menu.ManageBooks()}
	case errors.Is(err, vault.ErrNotFound):
		return Outcome{Text: "ℹ️ That book was already deleted.", Menu: menu.ManageBooks()}
	case errors.Is(err, vault.ErrBusy):
		return Outcome{Text: "⏳ Storage is busy. Tap delete again.", Menu: menu.ManageBooks()}
	default:
		r.log.Error("delete book", zap.Error(err))
		return Outcome{Text: "❌ Something went wrong. Please try again.", Menu: menu.Admin()}
	}
}

// ─── Settings & search flows ─────────────────────────────────────────────────

func (r *Router) finishChangeWelcome(userID int64, text string) Outcome {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Outcome{Text: "❌ Welcome message cannot be empty. Send it again:"}
	}
	r.SetWelcome(trimmed)
	r.sessions.Reset(userID)
	return Outcome{Text: "✅ Welcome message updated.", Menu: menu.BotSettings()}
}

func (r *Router) searchContent(userID int64, query string) Outcome {
	results := r.store.SearchContent(query)
	r.sessions.Reset(userID)

	if len(results) == 0 {
		return Outcome{
			Text: fmt.Sprintf("🔍 No matches for %q.", strings.TrimSpace(query)),
			Menu: menu.Admin(),
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 %d matches for %q:\n\n", len(results), strings.TrimSpace(query))
	for _, res := range results {
		fmt.Fprintf(&b, "• [%s] %s\n  %s\n", res.Kind, res.Label, res.Snippet)
	}
	text := b.String()
	return Outcome{Text: markdown.Clean(text), Fallback: text, Menu: menu.Admin()}
}

func (r *Router) searchLectures(userID int64, query string) Outcome {
	matches := r.store.SearchLectures(query)
	r.sessions.Reset(userID)

	if len(matches) == 0 {
		return Outcome{
			Text: fmt.Sprintf("🔎 No lectures match %q.", strings.TrimSpace(query)),
			Menu: menu.Admin(),
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔎 %d lectures match %q:\n\n", len(matches), strings.TrimSpace(query))
	for _, m := range matches {
		fmt.Fprintf(&b, "• %s — %s\n", m.Subject, m.LectureNo)
	}
	text := b.String()
	return Outcome{Text: markdown.Clean(text), Fallback: text, Menu: menu.Admin()}
}

func (r *Router) importJSON(userID int64, text string) Outcome {
	var snap vault.Snapshot
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		return Outcome{Text: "❌ That is not valid JSON. Paste the export again:"}
	}

	report := r.store.ImportJSON(&snap)
	r.sessions.Reset(userID)

	var b strings.Builder
	b.WriteString("📁 Import finished.\n\n")
	fmt.Fprintf(&b, "✅ %d subjects, %d lectures, %d books imported.\n",
		report.SubjectsImported, report.LecturesImported, report.BooksImported)
	if len(report.Errors) > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d items skipped:\n", len(report.Errors))
		for i, e := range report.Errors {
			if i == 10 {
				fmt.Fprintf(&b, "… and %d more\n", len(report.Errors)-i)
				break
			}
			fmt.Fprintf(&b, "• %s\n", e)
		}
	}
	text = b.String()
	return Outcome{Text: markdown.Clean(text), Fallback: text, Menu: menu.Admin()}
}
