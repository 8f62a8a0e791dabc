package badger

import (
	"bytes"
	"testing"
	"time"

	"github.com/poiesic/folio/core"
	"github.com/stretchr/testify/assert"
)

func TestMakeIndexKey_Layout(t *testing.T) {
	key := makeUserIDKey("user-42", 7)
	prefix := makePartialUserIDKey("user-42")

	assert.True(t, bytes.HasPrefix(key, prefix))
	assert.Len(t, key, len(documentUserIDPrefix)+1+16)
	assert.Len(t, prefix, len(documentUserIDPrefix)+1+8)
}

func TestMakeIndexKey_FixedWidthPrefixes(t *testing.T) {
	// Raw concatenation would make "a" a prefix of "ab"
	a := makePartialUserIDKey("a")
	ab := makePartialUserIDKey("ab")

	assert.Equal(t, len(a), len(ab))
	assert.False(t, bytes.HasPrefix(makeUserIDKey("ab", 1), a))
}

func TestMakeIndexKey_OrdersByRecordID(t *testing.T) {
	k1 := makeUserIDKey("user-1", 1)
	k2 := makeUserIDKey("user-1", 256)

	assert.Equal(t, -1, bytes.Compare(k1, k2))
}

func TestMakeTimestampKey_OrdersByTime(t *testing.T) {
	base := time.UnixMilli(1700000000000)
	earlier := makeTimestampKey(base, 9)
	later := makeTimestampKey(base.Add(time.Millisecond), 1)

	assert.Equal(t, -1, bytes.Compare(earlier, later))
}

func TestIndexKeys(t *testing.T) {
	doc := &core.Document{RecordID: 3, DocID: "doc", UserID: "user", Timestamp: time.UnixMilli(5)}
	keys := indexKeys(doc)

	assert.Len(t, keys, 3)
	assert.Equal(t, makeDocIDKey("doc", 3), keys[0])
	assert.Equal(t, makeUserIDKey("user", 3), keys[1])
	assert.Equal(t, makeTimestampKey(time.UnixMilli(5), 3), keys[2])
}
