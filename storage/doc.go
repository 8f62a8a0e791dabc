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

// Package storage provides the storage abstraction layer for folio.
//
// This package defines the DocumentRepository interface that decouples the
// document store from the embedded engine holding the data. Two engines are
// provided:
//
//   - storage/badger: BadgerDB, the default engine (directory on disk or in-memory)
//   - storage/bolt: bbolt, a single-file engine
//
// # Schema
//
// Both engines hold one collection, "documents", keyed by an auto-assigned
// numeric record ID, with three non-unique secondary indexes: docId, userId
// and timestamp. The schema is created the first time a store is opened and
// is recorded at SchemaVersion. Opening a store again performs no structural
// change. Opening a store written at a newer version fails with
// ErrSchemaVersion.
//
// # Errors
//
// Engine errors are returned unchanged so callers can match them against the
// engine's own sentinel errors. The sentinels declared here cover only the
// conditions the storage layer detects itself.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines. Every call runs in its own
// engine transaction.
package storage
