package vault

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openRawStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "vault.db")}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWithTx_RetriesOnceOnContention(t *testing.T) {
	s := openRawStore(t)

	calls := 0
	err := s.withTx(func(tx *sql.Tx) error {
		calls++
		if calls == 1 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		_, err := tx.Exec("INSERT INTO subjects (name) VALUES (?)", "Economy")
		return err
	})
	if err != nil {
		t.Fatalf("withTx: %v", err)
	}
	if calls != 2 {
		t.Fatalf("transaction ran %d times, want 2", calls)
	}
	if _, err := s.SubjectID("Economy"); err != nil {
		t.Fatalf("retried write not committed: %v", err)
	}
}

func TestWithTx_SecondBusySurfacesErrBusy(t *testing.T) {
	s := openRawStore(t)

	calls := 0
	err := s.withTx(func(tx *sql.Tx) error {
		calls++
		return errors.New("database is locked")
	})
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("withTx = %v, want ErrBusy", err)
	}
	if calls != 2 {
		t.Fatalf("transaction ran %d times, want exactly one retry", calls)
	}
}

func TestWithTx_NonBusyErrorNotRetried(t *testing.T) {
	s := openRawStore(t)

	calls := 0
	boom := errors.New("disk I/O error")
	err := s.withTx(func(tx *sql.Tx) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("withTx = %v, want the original error", err)
	}
	if errors.Is(err, ErrBusy) {
		t.Fatal("non-contention error reported as ErrBusy")
	}
	if calls != 1 {
		t.Fatalf("transaction ran %d times, want 1", calls)
	}
}

func TestIsBusy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"locked", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"busy code", errors.New("SQLITE_BUSY: unable to acquire lock"), true},
		{"table locked", errors.New("database table is locked"), true},
		{"unique violation", errors.New("UNIQUE constraint failed: subjects.name"), false},
		{"io error", errors.New("disk I/O error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBusy(tt.err); got != tt.want {
				t.Errorf("isBusy(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
