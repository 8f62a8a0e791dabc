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

package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/folio/storage"
)

// upgrade moves a store from version-1 to its key in schemaUpgrades.
type upgrade func(tx *badger.Txn) error

// schemaUpgrades holds one step per schema version. Steps must leave
// existing collections in place.
var schemaUpgrades = map[uint32]upgrade{
	1: createDocumentsCollection,
}

// ensureSchema creates the documents collection on first open and checks
// the recorded version on later opens. Reopening at the current version
// writes nothing.
func (b *Backend) ensureSchema() error {
	return b.WithTx(func(tx *badger.Txn) error {
		version, err := readSchemaVersion(tx)
		if err != nil {
			return err
		}
		if version == storage.SchemaVersion {
			return nil
		}
		if version > storage.SchemaVersion {
			return fmt.Errorf("%w: store is at version %d, supported version is %d",
				storage.ErrSchemaVersion, version, storage.SchemaVersion)
		}

		for v := version + 1; v <= storage.SchemaVersion; v++ {
			step, ok := schemaUpgrades[v]
			if !ok {
				return fmt.Errorf("%w: no upgrade to version %d", storage.ErrSchemaVersion, v)
			}
			if err := step(tx); err != nil {
				return err
			}
			b.logger.Debug("applied schema upgrade", "version", v)
		}

		if err := writeSchemaVersion(tx, storage.SchemaVersion); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// createDocumentsCollection registers the documents collection and its
// secondary indexes. Index entries themselves are key families written
// alongside each record, so registration is all that is needed.
func createDocumentsCollection(tx *badger.Txn) error {
	if err := tx.Set(makeCollectionKey(storage.CollectionName), nil); err != nil {
		return err
	}
	for _, index := range storage.Indexes {
		if err := tx.Set(makeIndexMetaKey(storage.CollectionName, index), nil); err != nil {
			return err
		}
	}
	return nil
}

// SchemaVersion returns the schema version recorded in the store.
func (b *Backend) SchemaVersion() (uint32, error) {
	var version uint32
	err := b.WithTx(func(tx *badger.Txn) error {
		var err error
		version, err = readSchemaVersion(tx)
		return err
	}, false)
	return version, err
}

// HasIndex reports whether the named secondary index of collection exists.
func (b *Backend) HasIndex(collection, index string) (bool, error) {
	var found bool
	err := b.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeIndexMetaKey(collection, index))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// readSchemaVersion returns 0 for a store that has never been initialized.
func readSchemaVersion(tx *badger.Txn) (uint32, error) {
	item, err := tx.Get(makeSchemaKey())
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}

	var version uint32
	err = item.Value(func(val []byte) error {
		if len(val) != 4 {
			return fmt.Errorf("%w: schema version record is %d bytes", storage.ErrSerializationFailed, len(val))
		}
		version = binary.BigEndian.Uint32(val)
		return nil
	})
	return version, err
}

func writeSchemaVersion(tx *badger.Txn, version uint32) error {
	return tx.Set(makeSchemaKey(), binary.BigEndian.AppendUint32(nil, version))
}
