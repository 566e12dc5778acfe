package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"scmcicd/internal/policy"
)

// Op names a store call.
type Op string

const (
	OpList   Op = "list"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Error is returned by the mock for injected or semantic failures.
type Error struct {
	Op       Op
	Name     string
	Message  string
	IsFatal  bool
	NotFound bool
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("mock %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("mock %s %s: %s", e.Op, e.Name, e.Message)
}

// Fatal reports whether the error ends the run.
func (e *Error) Fatal() bool { return e.IsFatal }

// Rejected builds a recoverable error, like a store rejecting one request.
func Rejected(message string) *Error {
	return &Error{Message: message}
}

// Unreachable builds a fatal error, like a lost connection.
func Unreachable() *Error {
	return &Error{Message: "connection refused", IsFatal: true}
}

// Store is an in-memory reconciler.Store for one kind.
type Store[T policy.Record[T]] struct {
	mu      sync.Mutex
	records map[policy.Scope][]T
	calls   map[Op]int
	// failures keyed by op and record name ("" matches any name)
	failures map[Op]map[string]error
}

// NewStore creates an empty store.
func NewStore[T policy.Record[T]]() *Store[T] {
	return &Store[T]{
		records:  make(map[policy.Scope][]T),
		calls:    make(map[Op]int),
		failures: make(map[Op]map[string]error),
	}
}

// Seed stores records in scope without counting calls and returns them with
// their assigned ids. Records that already carry an id keep it.
func (s *Store[T]) Seed(scope policy.Scope, records ...T) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeded := make([]T, 0, len(records))
	for _, r := range records {
		if r.RecordID() == "" {
			r = r.WithID(uuid.NewString())
		}
		r = r.InScope(scope)
		s.records[scope] = append(s.records[scope], r)
		seeded = append(seeded, r)
	}
	return seeded
}

// FailOn makes op fail with err for the record called name; an empty name
// matches every record. Passing a nil err clears the failure.
func (s *Store[T]) FailOn(op Op, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failures[op] == nil {
		s.failures[op] = make(map[string]error)
	}
	if err == nil {
		delete(s.failures[op], name)
		return
	}
	if e, ok := err.(*Error); ok {
		copied := *e
		copied.Op, copied.Name = op, name
		err = &copied
	}
	s.failures[op][name] = err
}

// Records returns a copy of the records in scope.
func (s *Store[T]) Records(scope policy.Scope) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.records[scope]...)
}

// Calls returns how often op was called.
func (s *Store[T]) Calls(op Op) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of calls of any kind.
func (s *Store[T]) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// WriteCalls returns the number of create, update and delete calls.
func (s *Store[T]) WriteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[OpCreate] + s.calls[OpUpdate] + s.calls[OpDelete]
}

// ResetCalls zeroes the call counters.
func (s *Store[T]) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[Op]int)
}

func (s *Store[T]) injected(op Op, name string) error {
	if err, ok := s.failures[op][name]; ok {
		return err
	}
	if err, ok := s.failures[op][""]; ok {
		return err
	}
	return nil
}

func (s *Store[T]) indexOf(scope policy.Scope, match func(T) bool) int {
	for i, r := range s.records[scope] {
		if match(r) {
			return i
		}
	}
	return -1
}

// List returns the records in scope.
func (s *Store[T]) List(_ context.Context, scope policy.Scope) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[OpList]++
	if err := s.injected(OpList, ""); err != nil {
		return nil, err
	}
	return append([]T(nil), s.records[scope]...), nil
}

// Create stores record under a new id. Names are unique per scope.
func (s *Store[T]) Create(_ context.Context, scope policy.Scope, record T) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[OpCreate]++
	name := record.RecordName()
	if err := s.injected(OpCreate, name); err != nil {
		return "", err
	}
	if s.indexOf(scope, func(r T) bool { return r.RecordName() == name }) >= 0 {
		return "", &Error{Op: OpCreate, Name: name, Message: "object already exists"}
	}

	id := uuid.NewString()
	s.records[scope] = append(s.records[scope], record.WithID(id).InScope(scope))
	return id, nil
}

// Update replaces the record with id.
func (s *Store[T]) Update(_ context.Context, scope policy.Scope, id string, record T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[OpUpdate]++
	name := record.RecordName()
	if err := s.injected(OpUpdate, name); err != nil {
		return err
	}
	i := s.indexOf(scope, func(r T) bool { return r.RecordID() == id })
	if i < 0 {
		return &Error{Op: OpUpdate, Name: name, Message: "object not found", NotFound: true}
	}
	s.records[scope][i] = record.WithID(id).InScope(scope)
	return nil
}

// Delete removes the record with id.
func (s *Store[T]) Delete(_ context.Context, scope policy.Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[OpDelete]++
	i := s.indexOf(scope, func(r T) bool { return r.RecordID() == id })
	if i < 0 {
		return &Error{Op: OpDelete, Name: id, Message: "object not found", NotFound: true}
	}
	if err := s.injected(OpDelete, s.records[scope][i].RecordName()); err != nil {
		return err
	}
	s.records[scope] = append(s.records[scope][:i:i], s.records[scope][i+1:]...)
	return nil
}

// FindByID looks a record up in any scope.
func (s *Store[T]) FindByID(id string) (policy.Scope, T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for scope, records := range s.records {
		for _, r := range records {
			if r.RecordID() == id {
				return scope, r, true
			}
		}
	}
	var zero T
	return policy.Scope{}, zero, false
}

// Committer records commit calls.
type Committer struct {
	mu     sync.Mutex
	calls  [][]string
	msgs   []string
	Result policy.CommitResult
	Err    error
}

// NewCommitter returns a committer whose commits succeed.
func NewCommitter() *Committer {
	return &Committer{Result: policy.CommitResult{JobID: "1", Status: policy.CommitStatusSuccess}}
}

// Commit records the call and returns the configured outcome.
func (c *Committer) Commit(_ context.Context, folders []string, message string) (policy.CommitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]string(nil), folders...))
	c.msgs = append(c.msgs, message)
	return c.Result, c.Err
}

// Calls returns the folders of every commit call.
func (c *Committer) Calls() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.calls...)
}

// Messages returns the message of every commit call.
func (c *Committer) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}
