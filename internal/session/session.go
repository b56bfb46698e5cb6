// Package session tracks per-user conversation state in memory.
//
// Sessions are volatile: a restart clears all of them, which simply
// lands every user back on the main menu. Staleness is handled by a
// lazy sweep piggybacked on mutations rather than a background timer.
package session

import (
	"sync"
	"time"
)

// timeNow is swappable for tests.
var timeNow = time.Now

const (
	// sweepInterval is the minimum spacing between staleness sweeps.
	sweepInterval = time.Hour
	// staleAfter is how long an untouched session survives.
	staleAfter = 2 * time.Hour
)

// State names a position in the conversation flow.
type State string

const (
	Normal               State = "normal"
	AddingSubject        State = "adding_subject"
	AddingLectureNumber  State = "adding_lecture_number"
	AddingLectureContent State = "adding_lecture_content"
	EditingLecture       State = "editing_lecture"
	RenamingSubject      State = "renaming_subject"
	AddingBookName       State = "adding_book_name"
	AddingBookContent    State = "adding_book_content"
	EditingBook          State = "editing_book"
	ChangingWelcome      State = "changing_welcome"
	SearchingContent     State = "searching_content"
	SearchingLectures    State = "searching_lectures"
	ImportingJSON        State = "importing_json"
)

var validStates = map[State]bool{
	Normal:               true,
	AddingSubject:        true,
	AddingLectureNumber:  true,
	AddingLectureContent: true,
	EditingLecture:       true,
	RenamingSubject:      true,
	AddingBookName:       true,
	AddingBookContent:    true,
	EditingBook:          true,
	ChangingWelcome:      true,
	SearchingContent:     true,
	SearchingLectures:    true,
	ImportingJSON:        true,
}

// Valid reports whether s is a known state.
func Valid(s State) bool {
	return validStates[s]
}

type entry struct {
	state       State
	scratch     map[string]string
	lastTouched time.Time
}

// Store holds every active session behind one mutex. Concurrent turns
// from the same user are last-write-wins.
type Store struct {
	mu        sync.Mutex
	sessions  map[int64]*entry
	lastSweep time.Time
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{
		sessions:  make(map[int64]*entry),
		lastSweep: timeNow(),
	}
}

// SetState moves a user to the given state and refreshes their
// last-touched time. A stale-session sweep may run as a side effect.
func (s *Store) SetState(userID int64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	e := s.sessions[userID]
	if e == nil {
		e = &entry{scratch: make(map[string]string)}
		s.sessions[userID] = e
	}
	e.state = state
	e.lastTouched = timeNow()
}

// State returns the user's current state; absent users are Normal.
func (s *Store) State(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.sessions[userID]
	if e == nil {
		return Normal
	}
	return e.state
}

// SetScratch stashes an intermediate value for a multi-step flow and
// refreshes the user's last-touched time.
func (s *Store) SetScratch(userID int64, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	e := s.sessions[userID]
	if e == nil {
		e = &entry{state: Normal, scratch: make(map[string]string)}
		s.sessions[userID] = e
	}
	e.scratch[key] = value
	e.lastTouched = timeNow()
}

// Scratch reads a stashed value. The second return reports presence so
// a missing key can be distinguished from an empty value.
func (s *Store) Scratch(userID int64, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.sessions[userID]
	if e == nil {
		return "", false
	}
	v, ok := e.scratch[key]
	return v, ok
}

// Reset drops the user's session entirely: Normal state, empty scratch.
func (s *Store) Reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of active sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked clears sessions untouched for staleAfter, at most once
// per sweepInterval. Caller must hold s.mu.
func (s *Store) sweepLocked() {
	now := timeNow()
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now

	for id, e := range s.sessions {
		if now.Sub(e.lastTouched) > staleAfter {
			delete(s.sessions, id)
		}
	}
}
