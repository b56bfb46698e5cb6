package vault

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store is the content repository backed by SQLite.
//
// The database/sql pool hands each operation its own connection, so there
// is no shared handle to serialize on. Writes go through withTx: begin,
// run, commit — rollback on any error, one retry on contention.
type Store struct {
	db  *sql.DB
	cfg Config
	log *zap.Logger
}

// Open opens (creating if needed) the content database, applies pragmas,
// creates the schema, and seeds the default subjects when empty.
func Open(cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("vault: open database: %w", err)
	}

	busyMillis := int64(30000)
	if cfg.BusyTimeout > 0 {
		busyMillis = cfg.BusyTimeout.Milliseconds()
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyMillis),
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("vault: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, log: log}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Schema ──────────────────────────────────────────────────────────────────

const schema = `
	CREATE TABLE IF NOT EXISTS subjects (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT UNIQUE NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS lectures (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL,
		lecture_no TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at TEXT NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS books (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		type       TEXT NOT NULL CHECK (type IN ('ncert', 'upsc', 'other')),
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now')),
		updated_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_lectures_subject_id ON lectures(subject_id);
	CREATE INDEX IF NOT EXISTS idx_books_type ON books(type);
`

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.seedIfEmpty()
}

// seedIfEmpty inserts the configured default subjects into an empty store.
func (s *Store) seedIfEmpty() error {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM subjects").Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, name := range s.cfg.SeedSubjects {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := s.db.Exec("INSERT OR IGNORE INTO subjects (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("seeding subject %q: %w", name, err)
		}
	}
	return nil
}

// ─── Transactions ────────────────────────────────────────────────────────────

// withTx runs fn inside a transaction. On lock contention the transaction
// is discarded and the whole operation retried exactly once on a fresh
// connection from the pool; a second busy failure surfaces as ErrBusy.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	err := s.runTx(fn)
	if err == nil || !isBusy(err) {
		return err
	}

	s.log.Warn("database locked, retrying once", zap.Error(err))
	if err := s.runTx(fn); err != nil {
		if isBusy(err) {
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
		return err
	}
	return nil
}

func (s *Store) runTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// isBusy reports whether err is a SQLite lock-contention error.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked")
}

// isUniqueViolation checks for a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ─── Subjects ────────────────────────────────────────────────────────────────

// AddSubject creates a subject. The name is trimmed; empty names are
// rejected with ErrInvalid and duplicates with ErrConflict.
func (s *Store) AddSubject(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: subject name is empty", ErrInvalid)
	}

	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO subjects (name) VALUES (?)", name)
		return err
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: subject %q", ErrConflict, name)
	}
	return err
}

// Subjects returns all subjects ordered by name. Read failures degrade to
// an empty list so browsing stays available.
func (s *Store) Subjects() []Subject {
	rows, err := s.db.Query("SELECT id, name, created_at FROM subjects ORDER BY name")
	if err != nil {
		s.log.Error("fetching subjects", zap.Error(err))
		return nil
	}
	defer func() { _ = rows.Close() }()

	var result []Subject
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.CreatedAt); err != nil {
			s.log.Error("scanning subject", zap.Error(err))
			return nil
		}
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		s.log.Error("fetching subjects", zap.Error(err))
		return nil
	}
	return result
}

// SubjectName returns the name of a subject, or ErrNotFound.
func (s *Store) SubjectName(id int64) (string, error) {
	var name string
	err := s.db.QueryRow("SELECT name FROM subjects WHERE id = ?", id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: subject %d", ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("fetching subject name: %w", err)
	}
	return name, nil
}

// SubjectID returns the id of the subject with the given exact name,
// or ErrNotFound. Used by structured import to attach lectures.
func (s *Store) SubjectID(name string) (int64, error) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM subjects WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: subject %q", ErrNotFound, name)
	}
	if err != nil {
		return 0, fmt.Errorf("fetching subject id: %w", err)
	}
	return id, nil
}

// DeleteSubject removes a subject and, via the cascade, all its lectures.
// Deleting an absent id returns ErrNotFound — idempotent, not a fault.
func (s *Store) DeleteSubject(id int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM subjects WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: subject %d", ErrNotFound, id)
		}
		return nil
	})
}

// RenameSubject changes a subject's name under the same validation and
// uniqueness rules as AddSubject.
func (s *Store) RenameSubject(id int64, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: subject name is empty", ErrInvalid)
	}

	err := s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec("UPDATE subjects SET name = ? WHERE id = ?", newName, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: subject %d", ErrNotFound, id)
		}
		return nil
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: subject %q", ErrConflict, newName)
	}
	return err
}

// ─── Lectures ────────────────────────────────────────────────────────────────

// AddLecture creates a lecture under an existing subject. The subject is
// checked explicitly inside the transaction so a missing parent surfaces
// as ErrNotFound rather than a bare FK failure.
func (s *Store) AddLecture(subjectID int64, lectureNo, content string) error {
	lectureNo = strings.TrimSpace(lectureNo)
	content = strings.TrimSpace(content)
	if lectureNo == "" || content == "" {
		return fmt.Errorf("%w: lecture number and content are required", ErrInvalid)
	}

	return s.withTx(func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRow("SELECT 1 FROM subjects WHERE id = ?", subjectID).Scan(&one)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: subject %d", ErrNotFound, subjectID)
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"INSERT INTO lectures (subject_id, lecture_no, content) VALUES (?, ?, ?)",
			subjectID, lectureNo, content,
		)
		return err
	})
}

// Lectures returns a subject's lectures ordered by lecture_no as a string.
// The ordering is intentionally lexicographic: "Lecture 10" sorts before
// "Lecture 2". Read failures degrade to an empty list.
func (s *Store) Lectures(subjectID int64) []Lecture {
	rows, err := s.db.Query(
		`SELECT id, subject_id, lecture_no, content, created_at, updated_at
		 FROM lectures WHERE subject_id = ? ORDER BY lecture_no`,
		subjectID,
	)
	if err != nil {
		s.log.Error("fetching lectures", zap.Int64("subject_id", subjectID), zap.Error(err))
		return nil
	}
	defer func() { _ = rows.Close() }()

	var result []Lecture
	for rows.Next() {
		var l Lecture
		if err := rows.Scan(&l.ID, &l.SubjectID, &l.LectureNo, &l.Content, &l.CreatedAt, &l.UpdatedAt); err != nil {
			s.log.Error("scanning lecture", zap.Error(err))
			return nil
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		s.log.Error("fetching lectures", zap.Error(err))
		return nil
	}
	return result
}

// Lecture returns a single lecture by id, or ErrNotFound.
func (s *Store) Lecture(id int64) (*Lecture, error) {
	var l Lecture
	err := s.db.QueryRow(
		`SELECT id, subject_id, lecture_no, content, created_at, updated_at
		 FROM lectures WHERE id = ?`, id,
	).Scan(&l.ID, &l.SubjectID, &l.LectureNo, &l.Content, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: lecture %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching lecture: %w", err)
	}
	return &l, nil
}

// UpdateLecture replaces a lecture's content and refreshes updated_at.
func (s *Store) UpdateLecture(id int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: lecture content is empty", ErrInvalid)
	}

	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			"UPDATE lectures SET content = ?, updated_at = datetime('now') WHERE id = ?",
			content, id,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: lecture %d", ErrNotFound, id)
		}
		return nil
	})
}

// DeleteLecture removes a lecture by id.
func (s *Store) DeleteLecture(id int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM lectures WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: lecture %d", ErrNotFound, id)
		}
		return nil
	})
}

// ─── Books ───────────────────────────────────────────────────────────────────

// AddBook creates a book. The type must be one of the three fixed
// categories; an unknown type is rejected before reaching storage.
func (s *Store) AddBook(name string, typ BookType, content string) error {
	name = strings.TrimSpace(name)
	content = strings.TrimSpace(content)
	if name == "" || content == "" {
		return fmt.Errorf("%w: book name and content are required", ErrInvalid)
	}
	if !ValidBookType(typ) {
		return fmt.Errorf("%w: book type %q", ErrInvalid, typ)
	}

	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			"INSERT INTO books (name, type, content) VALUES (?, ?, ?)",
			name, string(typ), content,
		)
		return err
	})
}

// Books returns all books of one type ordered by name. An unknown type or
// a read failure degrades to an empty list.
func (s *Store) Books(typ BookType) []Book {
	if !ValidBookType(typ) {
		s.log.Error("invalid book type", zap.String("type", string(typ)))
		return nil
	}

	rows, err := s.db.Query(
		`SELECT id, name, type, content, created_at, updated_at
		 FROM books WHERE type = ? ORDER BY name`,
		string(typ),
	)
	if err != nil {
		s.log.Error("fetching books", zap.String("type", string(typ)), zap.Error(err))
		return nil
	}
	defer func() { _ = rows.Close() }()

	var result []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Name, &b.Type, &b.Content, &b.CreatedAt, &b.UpdatedAt); err != nil {
			s.log.Error("scanning book", zap.Error(err))
			return nil
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		s.log.Error("fetching books", zap.Error(err))
		return nil
	}
	return result
}

// Book returns a single book by id, or ErrNotFound.
func (s *Store) Book(id int64) (*Book, error) {
	var b Book
	err := s.db.QueryRow(
		`SELECT id, name, type, content, created_at, updated_at FROM books WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Type, &b.Content, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: book %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching book: %w", err)
	}
	return &b, nil
}

// UpdateBook replaces a book's content and refreshes updated_at.
func (s *Store) UpdateBook(id int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: book content is empty", ErrInvalid)
	}

	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			"UPDATE books SET content = ?, updated_at = datetime('now') WHERE id = ?",
			content, id,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: book %d", ErrNotFound, id)
		}
		return nil
	})
}

// DeleteBook removes a book by id.
func (s *Store) DeleteBook(id int64) error {
	return s.withTx(func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM books WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: book %d", ErrNotFound, id)
		}
		return nil
	})
}

// ─── Search ──────────────────────────────────────────────────────────────────

const snippetLen = 100

// snippet truncates a matched field to snippetLen characters. Counted
// in runes, not bytes, so multi-byte content is never split mid-rune.
func snippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetLen {
		return s
	}
	return string(runes[:snippetLen]) + "..."
}

// SearchContent performs a case-insensitive substring search across subject
// names, lecture labels+content, and book names+content. An empty or
// whitespace-only query returns nothing without touching storage. Read
// failures degrade to an empty result set.
func (s *Store) SearchContent(query string) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	pattern := "%" + strings.ToLower(query) + "%"

	var results []SearchResult

	collect := func(kind, q string, args ...any) bool {
		rows, err := s.db.Query(q, args...)
		if err != nil {
			s.log.Error("search query", zap.String("kind", kind), zap.Error(err))
			return false
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var r SearchResult
			var field string
			if err := rows.Scan(&r.ID, &r.Label, &field); err != nil {
				s.log.Error("search scan", zap.Error(err))
				return false
			}
			r.Kind = kind
			r.Snippet = snippet(field)
			results = append(results, r)
		}
		return rows.Err() == nil
	}

	if !collect("subject",
		"SELECT id, name, name FROM subjects WHERE LOWER(name) LIKE ?", pattern) {
		return nil
	}
	if !collect("lecture",
		`SELECT id, lecture_no, content FROM lectures
		 WHERE LOWER(lecture_no) LIKE ? OR LOWER(content) LIKE ?`, pattern, pattern) {
		return nil
	}
	if !collect("book",
		`SELECT id, name, content FROM books
		 WHERE LOWER(name) LIKE ? OR LOWER(content) LIKE ?`, pattern, pattern) {
		return nil
	}

	return results
}

// SearchLectures restricts the same matching rule to lectures, joined with
// the owning subject, ordered by subject name then lecture label.
func (s *Store) SearchLectures(query string) []LectureMatch {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	pattern := "%" + strings.ToLower(query) + "%"

	rows, err := s.db.Query(
		`SELECT l.id, s.name, l.lecture_no
		 FROM lectures l
		 JOIN subjects s ON l.subject_id = s.id
		 WHERE LOWER(l.lecture_no) LIKE ? OR LOWER(l.content) LIKE ?
		 ORDER BY s.name, l.lecture_no`,
		pattern, pattern,
	)
	if err != nil {
		s.log.Error("searching lectures", zap.Error(err))
		return nil
	}
	defer func() { _ = rows.Close() }()

	var results []LectureMatch
	for rows.Next() {
		var m LectureMatch
		if err := rows.Scan(&m.ID, &m.Subject, &m.LectureNo); err != nil {
			s.log.Error("scanning lecture match", zap.Error(err))
			return nil
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		s.log.Error("searching lectures", zap.Error(err))
		return nil
	}
	return results
}

// ─── Stats & maintenance ─────────────────────────────────────────────────────

// Stats computes live aggregate counts and the on-disk size.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM subjects").Scan(&st.Subjects); err != nil {
		return nil, fmt.Errorf("counting subjects: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM lectures").Scan(&st.Lectures); err != nil {
		return nil, fmt.Errorf("counting lectures: %w", err)
	}

	rows, err := s.db.Query("SELECT type, COUNT(*) FROM books GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("counting books: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		switch BookType(typ) {
		case BookNCERT:
			st.NCERTBooks = n
		case BookUPSC:
			st.UPSCBooks = n
		case BookOther:
			st.OtherBooks = n
		}
		st.TotalBooks += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(
		"SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()",
	).Scan(&st.SizeBytes); err != nil {
		return nil, fmt.Errorf("measuring database size: %w", err)
	}

	return st, nil
}

// ContentStatistics computes the extended analytics view: busiest subject
// and subjects created in the last seven days.
func (s *Store) ContentStatistics() (*ContentStats, error) {
	cs := &ContentStats{}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM subjects").Scan(&cs.Subjects); err != nil {
		return nil, fmt.Errorf("counting subjects: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM lectures").Scan(&cs.Lectures); err != nil {
		return nil, fmt.Errorf("counting lectures: %w", err)
	}

	err := s.db.QueryRow(
		`SELECT s.name, COUNT(l.id) AS n
		 FROM subjects s
		 LEFT JOIN lectures l ON s.id = l.subject_id
		 GROUP BY s.id, s.name
		 ORDER BY n DESC
		 LIMIT 1`,
	).Scan(&cs.BusiestSubject, &cs.BusiestLectures)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("busiest subject: %w", err)
	}

	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM subjects WHERE created_at > datetime('now', '-7 days')",
	).Scan(&cs.RecentSubjects7d); err != nil {
		return nil, fmt.Errorf("recent subjects: %w", err)
	}

	if cs.Subjects > 0 {
		cs.AvgLecturesPerSubj = float64(cs.Lectures) / float64(cs.Subjects)
	}

	return cs, nil
}

// Vacuum reclaims free pages and defragments the database file.
func (s *Store) Vacuum() error {
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// Reset drops and recreates the schema, then reseeds the default subjects.
func (s *Store) Reset() error {
	drop := []string{
		"DROP TABLE IF EXISTS lectures",
		"DROP TABLE IF EXISTS books",
		"DROP TABLE IF EXISTS subjects",
	}
	for _, q := range drop {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if err := s.migrate(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
