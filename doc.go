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

// Package folio is a small document store on top of an embedded
// transactional key-value engine.
//
// A Store holds one collection of documents. Every save inserts a new record
// with an engine-assigned numeric ID and a millisecond timestamp; records are
// never updated in place. Documents can be fetched by record ID, listed per
// owner (newest first) and deleted.
//
//	store := folio.New("/var/lib/folio")
//	defer store.Close()
//
//	id, err := store.Save(ctx, "doc-1", "Report", []byte(`{"text":"hello"}`), "user-42")
//	docs, err := store.GetByUser(ctx, "user-42")
//
// The connection to the engine is opened by the first operation and reused
// until Close. Engine errors are returned unchanged.
package folio
