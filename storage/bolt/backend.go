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

package bolt

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/folio/storage"
	"go.etcd.io/bbolt"
)

const (
	// lockTimeout bounds the wait for the file lock held by another connection.
	lockTimeout = time.Second

	metaBucket = "meta"
	schemaKey  = "schema"
)

// Backend wraps a bbolt database holding the documents collection.
type Backend struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// OpenBackend opens the bbolt file at filePath, creating it if needed, and
// makes sure the documents collection exists at the current schema version.
// A nil logger means slog.Default().
func OpenBackend(filePath string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := bbolt.Open(filePath, 0600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, err
	}

	backend := &Backend{
		db:     db,
		logger: logger,
	}

	if err := backend.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return backend, nil
}

// Close closes the bbolt database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// View executes a read-only transaction.
func (b *Backend) View(fn func(tx *bbolt.Tx) error) error {
	return b.db.View(fn)
}

// Update executes a read-write transaction. The transaction commits if fn
// returns nil and rolls back otherwise.
func (b *Backend) Update(fn func(tx *bbolt.Tx) error) error {
	return b.db.Update(fn)
}

// ensureSchema creates the documents bucket and one bucket per secondary
// index. CreateBucketIfNotExists makes reopening a no-op.
func (b *Backend) ensureSchema() error {
	return b.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
		if err != nil {
			return err
		}

		version := uint32(0)
		if raw := meta.Get([]byte(schemaKey)); raw != nil {
			if len(raw) != 4 {
				return fmt.Errorf("%w: schema version record is %d bytes", storage.ErrSerializationFailed, len(raw))
			}
			version = binary.BigEndian.Uint32(raw)
		}
		if version > storage.SchemaVersion {
			return fmt.Errorf("%w: store is at version %d, supported version is %d",
				storage.ErrSchemaVersion, version, storage.SchemaVersion)
		}
		if version == storage.SchemaVersion {
			return nil
		}

		if _, err := tx.CreateBucketIfNotExists([]byte(storage.CollectionName)); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", storage.CollectionName, err)
		}
		for _, index := range storage.Indexes {
			name := indexBucket(index)
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		b.logger.Debug("created collection", "collection", storage.CollectionName, "version", storage.SchemaVersion)

		return meta.Put([]byte(schemaKey), binary.BigEndian.AppendUint32(nil, storage.SchemaVersion))
	})
}

// SchemaVersion returns the schema version recorded in the store.
func (b *Backend) SchemaVersion() (uint32, error) {
	var version uint32
	err := b.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		if meta == nil {
			return nil
		}
		if raw := meta.Get([]byte(schemaKey)); len(raw) == 4 {
			version = binary.BigEndian.Uint32(raw)
		}
		return nil
	})
	return version, err
}

// HasIndex reports whether the bucket for the named index exists.
func (b *Backend) HasIndex(index string) (bool, error) {
	var found bool
	err := b.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(indexBucket(index)) != nil
		return nil
	})
	return found, err
}

// indexBucket names the bucket holding one secondary index of the collection.
func indexBucket(index string) []byte {
	return []byte(storage.CollectionName + "." + index)
}
