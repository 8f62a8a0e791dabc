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

//go:generate go run ../cmd/musgen

package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is the engine-assigned primary key of a stored document.
// IDs come from a database sequence and are never reused.
type ID uint64

// KeyFromString derives a fixed-width 64-bit fingerprint of s using BLAKE2b.
// Index keys embed the fingerprint instead of the raw string so that every
// index prefix has the same length regardless of the identifier it encodes.
func KeyFromString(s string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(s))
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum)
}

// Document is a single stored revision of a caller's document.
// Documents are insert-only: saving the same DocID twice produces two records.
type Document struct {
	RecordID  ID        // Assigned by the store on insert
	DocID     string    // Caller-supplied logical identifier, not unique
	Title     string    // Free-text label
	Data      []byte    // Opaque payload, stored verbatim
	UserID    string    // Owner identifier
	Timestamp time.Time // Creation time at millisecond resolution, assigned on insert
}

// Millis returns the document timestamp in milliseconds since the Unix epoch.
func (d *Document) Millis() int64 {
	return d.Timestamp.UnixMilli()
}

// Now returns the current wall-clock time truncated to the millisecond
// resolution documents are stored at.
func Now() time.Time {
	return Truncate(time.Now())
}

// Truncate reduces t to UTC millisecond resolution.
func Truncate(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
