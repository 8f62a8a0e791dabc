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

const (
	// SchemaVersion is the version of the on-disk layout written by this build.
	SchemaVersion = 1

	// CollectionName names the single collection holding document records.
	CollectionName = "documents"
)

// Index names for the secondary indexes on the documents collection.
// All indexes are non-unique.
const (
	IndexDocID     = "docId"
	IndexUserID    = "userId"
	IndexTimestamp = "timestamp"
)

// Indexes lists every secondary index created alongside the collection.
var Indexes = []string{IndexDocID, IndexUserID, IndexTimestamp}
