// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package folio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
	"github.com/poiesic/folio/storage/badger"
	"github.com/poiesic/folio/storage/bolt"
)

// Engine selects the embedded storage engine behind a Store.
type Engine string

const (
	// EngineBadger stores documents in a BadgerDB directory.
	EngineBadger Engine = "badger"
	// EngineBolt stores documents in a single bbolt file.
	EngineBolt Engine = "bolt"
)

var (
	// ErrUnknownEngine is returned when a Store is configured with an engine
	// name it does not recognise.
	ErrUnknownEngine = errors.New("unknown storage engine")

	// ErrInMemoryUnsupported is returned when in-memory mode is requested for
	// an engine that only works on disk.
	ErrInMemoryUnsupported = errors.New("engine does not support in-memory mode")
)

// ParseEngine converts an engine name to an Engine.
func ParseEngine(name string) (Engine, error) {
	switch Engine(name) {
	case EngineBadger, EngineBolt:
		return Engine(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// Store is a handle on a document store. The underlying engine connection is
// opened on first use and cached until Close. A Store is safe for concurrent
// use.
type Store struct {
	path    string
	options options

	mu     sync.Mutex
	conn   *connection
	closed bool
}

type connection struct {
	repo  storage.DocumentRepository
	close func() error
}

// Option configures a Store.
type Option func(*options)

type options struct {
	engine   Engine
	inMemory bool
	logger   *slog.Logger
	clock    func() time.Time
}

// WithEngine selects the storage engine. Default is EngineBadger.
func WithEngine(engine Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// WithInMemory keeps all data in memory. Only supported by EngineBadger;
// the path is ignored.
func WithInMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// WithClock replaces the time source used to stamp saved documents.
// Default is time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock == nil {
			clock = time.Now
		}
		o.clock = clock
	}
}

// New returns a Store for the database at path. No I/O happens until the
// first operation.
func New(path string, opts ...Option) *Store {
	options := options{
		engine: EngineBadger,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &Store{
		path:    path,
		options: options,
	}
}

// Save inserts a new document and returns its record ID. Saving never
// overwrites: repeated saves of the same docID produce separate records.
func (s *Store) Save(ctx context.Context, docID, title string, data []byte, userID string) (core.ID, error) {
	logger := s.options.logger.With("op", "save", "docId", docID, "userId", userID)

	repo, err := s.repository()
	if err != nil {
		logger.Debug("save failed", "err", err)
		return 0, err
	}

	doc, err := repo.AddDocument(ctx, &core.Document{
		DocID:     docID,
		Title:     title,
		Data:      data,
		UserID:    userID,
		Timestamp: core.Truncate(s.options.clock()),
	})
	if err != nil {
		logger.Debug("save failed", "title", title, "bytes", len(data), "err", err)
		return 0, err
	}

	logger.Debug("saved document", "title", title, "bytes", len(data), "recordId", doc.RecordID, "timestamp", doc.Millis())
	return doc.RecordID, nil
}

// GetByUser returns every document owned by userID, most recent first.
// The result is empty, not nil, when the user has no documents.
func (s *Store) GetByUser(ctx context.Context, userID string) ([]*core.Document, error) {
	repo, err := s.repository()
	if err != nil {
		return nil, err
	}
	docs, err := repo.GetDocumentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.options.logger.Debug("listed documents", "op", "getByUser", "userId", userID, "count", len(docs))
	return docs, nil
}

// GetByID returns the document with the given record ID, or nil if there is none.
// A document saved with an empty or nil payload comes back with nil Data.
func (s *Store) GetByID(ctx context.Context, id core.ID) (*core.Document, error) {
	repo, err := s.repository()
	if err != nil {
		return nil, err
	}
	return repo.GetDocument(ctx, id)
}

// Delete removes the document with the given record ID. Deleting a record
// that does not exist succeeds.
func (s *Store) Delete(ctx context.Context, id core.ID) error {
	repo, err := s.repository()
	if err != nil {
		return err
	}
	if err := repo.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.options.logger.Debug("deleted document", "op", "delete", "recordId", id)
	return nil
}

// Close releases the engine connection if one was opened. Operations started
// after Close fail with storage.ErrStorageClosed. Operations already running
// when Close is called may instead fail with the engine's own closed error,
// such as badger.ErrDBClosed or bbolt.ErrDatabaseNotOpen.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn == nil {
		return nil
	}
	err := s.conn.close()
	s.conn = nil
	if err != nil {
		s.options.logger.Error("error closing store", "err", err)
	}
	return err
}

// repository returns the cached connection, opening it on first use.
// A failed open is not cached.
func (s *Store) repository() (storage.DocumentRepository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, storage.ErrStorageClosed
	}
	if s.conn != nil {
		return s.conn.repo, nil
	}

	conn, err := s.open()
	if err != nil {
		s.options.logger.Error("error opening store", "path", s.path, "engine", s.options.engine, "err", err)
		return nil, err
	}
	s.conn = conn
	s.options.logger.Debug("opened store", "path", s.path, "engine", s.options.engine)
	return conn.repo, nil
}

func (s *Store) open() (*connection, error) {
	switch s.options.engine {
	case EngineBadger:
		backend, err := badger.OpenBackend(s.path, s.options.inMemory, s.options.logger)
		if err != nil {
			return nil, err
		}
		repo, err := badger.NewDocumentRepository(backend)
		if err != nil {
			backend.Close()
			return nil, err
		}
		return &connection{
			repo: repo,
			close: func() error {
				if err := repo.Close(); err != nil {
					backend.Close()
					return err
				}
				return backend.Close()
			},
		}, nil

	case EngineBolt:
		if s.options.inMemory {
			return nil, fmt.Errorf("%w: %s", ErrInMemoryUnsupported, EngineBolt)
		}
		backend, err := bolt.OpenBackend(s.path, s.options.logger)
		if err != nil {
			return nil, err
		}
		repo := bolt.NewDocumentRepository(backend)
		return &connection{
			repo:  repo,
			close: backend.Close,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, s.options.engine)
	}
}
