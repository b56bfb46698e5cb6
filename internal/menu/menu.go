// Package menu builds the inline keyboard layouts shown with every
// reply. Action strings produced here are the other half of the
// router's parsing contract.
package menu

import (
	"fmt"

	"github.com/prepvault/prepvault/internal/vault"
)

// Button is one tappable cell: a visible label and an opaque action id.
type Button struct {
	Label  string
	Action string
}

// Menu is rows of buttons, rendered top to bottom.
type Menu [][]Button

func btn(label, action string) Button {
	return Button{Label: label, Action: action}
}

// shelfAction maps a book type to the action that opens its shelf.
func shelfAction(typ vault.BookType) string {
	switch typ {
	case vault.BookNCERT:
		return "ncert_wallah"
	case vault.BookUPSC:
		return "upsc_wallah"
	default:
		return "other_books"
	}
}

// shelfLabel is the display name of a book shelf.
func shelfLabel(typ vault.BookType) string {
	switch typ {
	case vault.BookNCERT:
		return "NCERT Wallah"
	case vault.BookUPSC:
		return "UPSC Wallah"
	default:
		return "Other Books"
	}
}

// Main is the landing menu; admins get an extra settings row.
func Main(isAdmin bool) Menu {
	m := Menu{
		{btn("📚 Lectures", "lectures")},
		{btn("📘 Books", "books")},
	}
	if isAdmin {
		m = append(m, []Button{btn("🛠️ Admin Settings", "admin_settings")})
	}
	return m
}

// Subjects lists every subject, one per row.
func Subjects(subjects []vault.Subject, isAdmin bool) Menu {
	var m Menu
	for _, s := range subjects {
		m = append(m, []Button{btn(s.Name, fmt.Sprintf("subject_%d", s.ID))})
	}
	if isAdmin {
		m = append(m, []Button{btn("➕ Add Subject", "add_subject")})
	}
	m = append(m, []Button{btn("↩️ Back", "main_menu")})
	return m
}

// Lectures lists a subject's lectures.
func Lectures(subjectID int64, lectures []vault.Lecture, isAdmin bool) Menu {
	var m Menu
	for _, l := range lectures {
		m = append(m, []Button{btn("▶️ "+l.LectureNo, fmt.Sprintf("lecture_%d", l.ID))})
	}
	if isAdmin {
		m = append(m, []Button{btn("➕ Add Lecture", fmt.Sprintf("add_lecture_%d", subjectID))})
	}
	m = append(m, []Button{btn("↩️ Back to Subjects", "lectures")})
	return m
}

// LectureView is the navigation shown under a single lecture.
func LectureView(subjectID int64) Menu {
	return Menu{
		{btn("↩️ Back to Lectures", fmt.Sprintf("subject_%d", subjectID))},
		{btn("📂 Menu", "main_menu")},
	}
}

// Books is the shelf picker.
func Books(isAdmin bool) Menu {
	m := Menu{
		{btn("📖 NCERT Wallah", "ncert_wallah")},
		{btn("📚 UPSC Wallah", "upsc_wallah")},
		{btn("📄 Other Books", "other_books")},
	}
	if isAdmin {
		m = append(m, []Button{btn("🛠️ Manage Books", "manage_books")})
	}
	m = append(m, []Button{btn("↩️ Back", "main_menu")})
	return m
}

// BookShelf lists one shelf's books.
func BookShelf(typ vault.BookType, books []vault.Book, isAdmin bool) Menu {
	var m Menu
	for _, b := range books {
		m = append(m, []Button{btn(b.Name, fmt.Sprintf("%s_book_%d", typ, b.ID))})
	}
	if isAdmin {
		m = append(m, []Button{btn("➕ Add "+shelfLabel(typ)+" Book", fmt.Sprintf("add_%s_book", typ))})
	}
	m = append(m, []Button{btn("↩️ Back to Books", "books")})
	return m
}

// BookView is the navigation shown under a single book.
func BookView(typ vault.BookType) Menu {
	return Menu{
		{btn("↩️ Back to "+shelfLabel(typ), shelfAction(typ))},
		{btn("📂 Menu", "main_menu")},
	}
}

// Admin is the control panel.
func Admin() Menu {
	return Menu{
		{btn("📚 Manage Subjects", "manage_subjects"), btn("📖 Manage Lectures", "manage_lectures")},
		{btn("📘 Manage Books", "manage_books"), btn("🗄️ Database Tools", "database_tools")},
		{btn("⚙️ Bot Settings", "bot_settings"), btn("📈 Analytics", "user_analytics")},
		{btn("🔍 Search Content", "search_content"), btn("🔎 Search Lectures", "search_lectures")},
		{btn("🧾 View All Data", "view_all_data"), btn("📁 Import JSON", "import_json")},
		{btn("↩️ Back to Menu", "main_menu")},
	}
}

// ManageSubjects pairs each subject with delete and rename actions.
func ManageSubjects(subjects []vault.Subject) Menu {
	var m Menu
	for _, s := range subjects {
		m = append(m, []Button{
			btn("🗑️ Delete "+s.Name, fmt.Sprintf("delete_subject_%d", s.ID)),
			btn("📝 Rename", fmt.Sprintf("rename_subject_%d", s.ID)),
		})
	}
	m = append(m, []Button{btn("➕ Add New Subject", "add_subject")})
	m = append(m, []Button{btn("↩️ Back", "admin_settings")})
	return m
}

// ManageLectureSubjects picks the subject whose lectures to manage.
func ManageLectureSubjects(subjects []vault.Subject) Menu {
	var m Menu
	for _, s := range subjects {
		m = append(m, []Button{btn(s.Name, fmt.Sprintf("manage_lectures_subject_%d", s.ID))})
	}
	m = append(m, []Button{btn("↩️ Back", "admin_settings")})
	return m
}

// ManageLectures pairs each lecture with delete and edit actions.
func ManageLectures(subjectID int64, lectures []vault.Lecture) Menu {
	var m Menu
	for _, l := range lectures {
		m = append(m, []Button{
			btn("🗑️ Delete "+l.LectureNo, fmt.Sprintf("delete_lecture_%d", l.ID)),
			btn("📝 Edit", fmt.Sprintf("edit_lecture_%d", l.ID)),
		})
	}
	m = append(m, []Button{btn("➕ Add New Lecture", fmt.Sprintf("add_lecture_%d", subjectID))})
	m = append(m, []Button{btn("↩️ Back", "manage_lectures")})
	return m
}

// ManageBooks is the per-shelf management picker.
func ManageBooks() Menu {
	return Menu{
		{btn("📖 Manage NCERT Books", "manage_ncert_books")},
		{btn("📚 Manage UPSC Books", "manage_upsc_books")},
		{btn("📄 Manage Other Books", "manage_other_books")},
		{btn("➕ Add NCERT Book", "add_ncert_book"), btn("➕ Add UPSC Book", "add_upsc_book")},
		{btn("➕ Add Other Book", "add_other_book")},
		{btn("↩️ Back", "admin_settings")},
	}
}

// ManageBookList pairs each book on a shelf with delete and edit actions.
func ManageBookList(typ vault.BookType, books []vault.Book) Menu {
	var m Menu
	for _, b := range books {
		m = append(m, []Button{
			btn("🗑️ Delete "+b.Name, fmt.Sprintf("delete_%s_book_%d", typ, b.ID)),
			btn("📝 Edit", fmt.Sprintf("edit_%s_book_%d", typ, b.ID)),
		})
	}
	m = append(m, []Button{btn("➕ Add New "+shelfLabel(typ)+" Book", fmt.Sprintf("add_%s_book", typ))})
	m = append(m, []Button{btn("↩️ Back", "manage_books")})
	return m
}

// DatabaseTools groups the maintenance actions.
func DatabaseTools() Menu {
	return Menu{
		{btn("💾 Create Backup", "backup_database")},
		{btn("📤 Export JSON", "export_json")},
		{btn("⚡ Optimize Database", "optimize_database")},
		{btn("🗑️ Reset Database", "reset_database")},
		{btn("↩️ Back", "admin_settings")},
	}
}

// BotSettings groups the bot configuration actions.
func BotSettings() Menu {
	return Menu{
		{btn("💬 Change Welcome Message", "change_welcome_message")},
		{btn("🤖 View Bot Info", "view_bot_info")},
		{btn("📊 Performance Stats", "user_analytics")},
		{btn("↩️ Back", "admin_settings")},
	}
}

// Confirm asks for a second tap before a destructive per-item action.
// The confirm action is the original action with a "confirm_" prefix.
func Confirm(action string, id int64) Menu {
	return Menu{
		{
			btn("✅ Confirm", fmt.Sprintf("confirm_%s_%d", action, id)),
			btn("❌ Cancel", "admin_settings"),
		},
	}
}

// DangerConfirm guards whole-database destruction behind a loud button.
func DangerConfirm(action string) Menu {
	return Menu{
		{btn("⚠️ YES, DELETE EVERYTHING", "confirm_"+action)},
		{btn("❌ Cancel", "database_tools")},
	}
}
