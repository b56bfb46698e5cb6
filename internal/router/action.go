package router

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/prepvault/prepvault/internal/vault"
)

// ErrUnknownAction marks an action id outside the known vocabulary.
var ErrUnknownAction = errors.New("unknown action")

// ActionKind names one entry in the closed action vocabulary.
type ActionKind int

const (
	KindMainMenu ActionKind = iota
	KindLectures
	KindBooks
	KindSubject
	KindLecture
	KindShelf
	KindBook

	KindAdmin
	KindAddSubject
	KindAddLecture
	KindManageSubjects
	KindManageLectures
	KindManageLecturesSubject
	KindViewAllData
	KindDatabaseTools
	KindBackup
	KindOptimize
	KindReset
	KindConfirmReset
	KindBotSettings
	KindChangeWelcome
	KindBotInfo
	KindAnalytics
	KindDeleteSubject
	KindConfirmDeleteSubject
	KindRenameSubject
	KindDeleteLecture
	KindConfirmDeleteLecture
	KindEditLecture
	KindManageBooks
	KindManageShelf
	KindAddBook
	KindDeleteBook
	KindConfirmDeleteBook
	KindEditBook
	KindSearchContent
	KindSearchLectures
	KindImportJSON
	KindExportJSON
)

// Action is one parsed button press. ID and BookType are populated only
// for the kinds that carry them.
type Action struct {
	Kind     ActionKind
	ID       int64
	BookType vault.BookType
}

var fixedActions = map[string]ActionKind{
	"main_menu":              KindMainMenu,
	"lectures":               KindLectures,
	"books":                  KindBooks,
	"admin_settings":         KindAdmin,
	"add_subject":            KindAddSubject,
	"manage_subjects":        KindManageSubjects,
	"manage_lectures":        KindManageLectures,
	"view_all_data":          KindViewAllData,
	"database_tools":         KindDatabaseTools,
	"backup_database":        KindBackup,
	"optimize_database":      KindOptimize,
	"reset_database":         KindReset,
	"confirm_reset_database": KindConfirmReset,
	"bot_settings":           KindBotSettings,
	"change_welcome_message": KindChangeWelcome,
	"view_bot_info":          KindBotInfo,
	"user_analytics":         KindAnalytics,
	"manage_books":           KindManageBooks,
	"search_content":         KindSearchContent,
	"search_lectures":        KindSearchLectures,
	"import_json":            KindImportJSON,
	"export_json":            KindExportJSON,
}

var shelfActions = map[string]vault.BookType{
	"ncert_wallah": vault.BookNCERT,
	"upsc_wallah":  vault.BookUPSC,
	"other_books":  vault.BookOther,
}

// idPrefixes map an action prefix carrying a numeric suffix to its kind.
// Longer prefixes are checked first so "manage_lectures_subject_" wins
// over any shorter overlap.
var idPrefixes = []struct {
	prefix string
	kind   ActionKind
}{
	{"manage_lectures_subject_", KindManageLecturesSubject},
	{"confirm_delete_subject_", KindConfirmDeleteSubject},
	{"confirm_delete_lecture_", KindConfirmDeleteLecture},
	{"delete_subject_", KindDeleteSubject},
	{"delete_lecture_", KindDeleteLecture},
	{"rename_subject_", KindRenameSubject},
	{"edit_lecture_", KindEditLecture},
	{"add_lecture_", KindAddLecture},
	{"subject_", KindSubject},
	{"lecture_", KindLecture},
}

// ParseAction turns a raw action id into a tagged Action. Every string a
// menu constructor can emit parses successfully; everything else is
// ErrUnknownAction.
func ParseAction(actionID string) (Action, error) {
	if kind, ok := fixedActions[actionID]; ok {
		return Action{Kind: kind}, nil
	}
	if typ, ok := shelfActions[actionID]; ok {
		return Action{Kind: KindShelf, BookType: typ}, nil
	}

	for _, typ := range vault.BookTypes {
		if actionID == fmt.Sprintf("manage_%s_books", typ) {
			return Action{Kind: KindManageShelf, BookType: typ}, nil
		}
		if actionID == fmt.Sprintf("add_%s_book", typ) {
			return Action{Kind: KindAddBook, BookType: typ}, nil
		}
		for _, p := range []struct {
			prefix string
			kind   ActionKind
		}{
			{fmt.Sprintf("confirm_delete_%s_book_", typ), KindConfirmDeleteBook},
			{fmt.Sprintf("delete_%s_book_", typ), KindDeleteBook},
			{fmt.Sprintf("edit_%s_book_", typ), KindEditBook},
			{fmt.Sprintf("%s_book_", typ), KindBook},
		} {
			if rest, ok := strings.CutPrefix(actionID, p.prefix); ok {
				id, err := strconv.ParseInt(rest, 10, 64)
				if err != nil {
					return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
				}
				return Action{Kind: p.kind, ID: id, BookType: typ}, nil
			}
		}
	}

	for _, p := range idPrefixes {
		if rest, ok := strings.CutPrefix(actionID, p.prefix); ok {
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
			}
			return Action{Kind: p.kind, ID: id}, nil
		}
	}

	return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
}

// adminOnly reports whether an action kind is restricted to the admin.
func adminOnly(kind ActionKind) bool {
	return kind >= KindAdmin
}
