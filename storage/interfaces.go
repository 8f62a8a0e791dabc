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

package storage

import (
	"context"

	"github.com/poiesic/folio/core"
)

// DocumentRepository provides operations for managing document records.
// Implementations must be thread-safe and support concurrent access.
// Engine errors are returned unchanged.
type DocumentRepository interface {
	// AddDocument inserts doc as a new record. It never overwrites.
	// Generates RecordID from the collection sequence and sets Timestamp
	// to the current time if it is zero.
	// Returns doc with RecordID and Timestamp populated.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a single document by record ID.
	// Returns nil, nil if no record has that ID.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocumentsByUser retrieves every document owned by userID via the
	// user index, ordered by Timestamp descending. Documents with equal
	// timestamps keep index order. Returns an empty slice if none match.
	GetDocumentsByUser(ctx context.Context, userID string) ([]*core.Document, error)

	// DeleteDocument removes the record and its index entries.
	// Deleting an ID that does not exist is not an error.
	DeleteDocument(ctx context.Context, id core.ID) error

	// Close releases repository resources. It does not close the backend.
	Close() error
}
