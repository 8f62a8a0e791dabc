package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/folio/core"
)

// Key prefixes for different data types
const (
	documentPrefix          = "docrec"
	documentDocIDPrefix     = "docdid"
	documentUserIDPrefix    = "docusr"
	documentTimestampPrefix = "docts"
	documentIDSeq           = "docrecseq"
	metaPrefix              = "meta"
)

// makeDocumentKey generates a key for a document record by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeIndexKey generates a composite key for a fingerprinted index.
// Format: prefix:fingerprint:recordID
func makeIndexKey(prefix string, value string, id core.ID) []byte {
	buf := makePartialIndexKey(prefix, value)
	// Write in BigEndian order so lexicographic sort follows record ID
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}

// makePartialIndexKey generates the prefix shared by every entry of one
// indexed value. Format: prefix:fingerprint
func makePartialIndexKey(prefix string, value string) []byte {
	buf := make([]byte, 0, len(prefix)+1+16)
	buf = append(buf, prefix...)
	buf = append(buf, ':')
	return binary.BigEndian.AppendUint64(buf, core.KeyFromString(value))
}

// makeDocIDKey generates the docId index entry for a record.
func makeDocIDKey(docID string, id core.ID) []byte {
	return makeIndexKey(documentDocIDPrefix, docID, id)
}

// makeUserIDKey generates the userId index entry for a record.
func makeUserIDKey(userID string, id core.ID) []byte {
	return makeIndexKey(documentUserIDPrefix, userID, id)
}

// makePartialUserIDKey generates the prefix of all userId index entries for userID.
func makePartialUserIDKey(userID string) []byte {
	return makePartialIndexKey(documentUserIDPrefix, userID)
}

// makeTimestampKey generates a composite key for the timestamp index.
// Format: prefix:millis:recordID
func makeTimestampKey(timestamp time.Time, id core.ID) []byte {
	prefix := documentTimestampPrefix + ":"
	buf := make([]byte, len(prefix)+16) // 8 bytes for timestamp + 8 bytes for ID
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMilli()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeSchemaKey is the key holding the recorded schema version.
func makeSchemaKey() []byte {
	return []byte(metaPrefix + ":schema")
}

// makeCollectionKey marks a collection as created.
func makeCollectionKey(collection string) []byte {
	return []byte(fmt.Sprintf("%s:collection:%s", metaPrefix, collection))
}

// makeIndexMetaKey marks a secondary index of a collection as created.
func makeIndexMetaKey(collection, index string) []byte {
	return []byte(fmt.Sprintf("%s:index:%s:%s", metaPrefix, collection, index))
}

// indexKeys returns every secondary index entry for a record.
func indexKeys(doc *core.Document) [][]byte {
	return [][]byte{
		makeDocIDKey(doc.DocID, doc.RecordID),
		makeUserIDKey(doc.UserID, doc.RecordID),
		makeTimestampKey(doc.Timestamp, doc.RecordID),
	}
}
