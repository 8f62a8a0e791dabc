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
	"bytes"
	"context"
	"encoding/binary"

	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
	"go.etcd.io/bbolt"
)

// DocumentRepository implements storage.DocumentRepository for bbolt.
// Record IDs come from the documents bucket sequence.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close is a no-op; bbolt sequences live inside the bucket.
func (r *DocumentRepository) Close() error {
	return nil
}

// AddDocument inserts doc as a new record.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := r.backend.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket([]byte(storage.CollectionName))

		nextID, err := docs.NextSequence()
		if err != nil {
			return err
		}
		doc.RecordID = core.ID(nextID)

		if doc.Timestamp.IsZero() {
			doc.Timestamp = core.Now()
		} else {
			doc.Timestamp = core.Truncate(doc.Timestamp)
		}

		if err := docs.Put(recordKey(doc.RecordID), storage.MarshalDocument(doc)); err != nil {
			return err
		}
		return putIndexes(tx, doc)
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// GetDocument retrieves a single document by record ID.
// Returns nil, nil if the record doesn't exist.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *core.Document
	err := r.backend.View(func(tx *bbolt.Tx) error {
		var err error
		result, err = readDocument(tx, id)
		return err
	})
	return result, err
}

// GetDocumentsByUser retrieves all documents owned by userID, newest first.
func (r *DocumentRepository) GetDocumentsByUser(ctx context.Context, userID string) ([]*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := []*core.Document{}
	err := r.backend.View(func(tx *bbolt.Tx) error {
		prefix := fingerprint(userID)
		c := tx.Bucket(indexBucket(storage.IndexUserID)).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			id := core.ID(binary.BigEndian.Uint64(k[len(prefix):]))
			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			// Index keys carry a fingerprint, so confirm the owner
			if doc != nil && doc.UserID == userID {
				results = append(results, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	storage.SortNewestFirst(results)
	return results, nil
}

// DeleteDocument removes a document and its index entries.
// Deleting a missing record is not an error.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.backend.Update(func(tx *bbolt.Tx) error {
		doc, err := readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return nil
		}

		for index, key := range indexEntries(doc) {
			if err := tx.Bucket(indexBucket(index)).Delete(key); err != nil {
				return err
			}
		}
		return tx.Bucket([]byte(storage.CollectionName)).Delete(recordKey(id))
	})
}

// readDocument reads a document by ID. Returns nil, nil if absent.
func readDocument(tx *bbolt.Tx, id core.ID) (*core.Document, error) {
	val := tx.Bucket([]byte(storage.CollectionName)).Get(recordKey(id))
	if val == nil {
		return nil, nil
	}
	return storage.UnmarshalDocument(val)
}

// putIndexes writes every secondary index entry for doc.
func putIndexes(tx *bbolt.Tx, doc *core.Document) error {
	value := storage.MarshalID(doc.RecordID)
	for index, key := range indexEntries(doc) {
		if err := tx.Bucket(indexBucket(index)).Put(key, value); err != nil {
			return err
		}
	}
	return nil
}

// indexEntries maps each index name to the entry key for doc.
func indexEntries(doc *core.Document) map[string][]byte {
	return map[string][]byte{
		storage.IndexDocID:     indexKey(fingerprint(doc.DocID), doc.RecordID),
		storage.IndexUserID:    indexKey(fingerprint(doc.UserID), doc.RecordID),
		storage.IndexTimestamp: indexKey(binary.BigEndian.AppendUint64(nil, uint64(doc.Timestamp.UnixMilli())), doc.RecordID),
	}
}

// recordKey encodes a record ID big-endian so cursor order follows ID order.
func recordKey(id core.ID) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

// fingerprint is the fixed-width index prefix for a string value.
func fingerprint(value string) []byte {
	return binary.BigEndian.AppendUint64(nil, core.KeyFromString(value))
}

// indexKey appends the record ID to an index prefix.
// Format: prefix(8):recordID(8)
func indexKey(prefix []byte, id core.ID) []byte {
	return binary.BigEndian.AppendUint64(prefix, uint64(id))
}
