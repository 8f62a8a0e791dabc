package folio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/poiesic/folio/core"
	"github.com/poiesic/folio/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock hands out a fixed time that tests advance explicitly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1700000000000).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func engines(t *testing.T) map[string]func(opts ...Option) *Store {
	return map[string]func(opts ...Option) *Store{
		"badger": func(opts ...Option) *Store {
			return New(filepath.Join(t.TempDir(), "db"), append(opts, WithEngine(EngineBadger))...)
		},
		"badger-memory": func(opts ...Option) *Store {
			return New("", append(opts, WithEngine(EngineBadger), WithInMemory())...)
		},
		"bolt": func(opts ...Option) *Store {
			return New(filepath.Join(t.TempDir(), "folio.db"), append(opts, WithEngine(EngineBolt))...)
		},
	}
}

func TestStore_SaveThenGet(t *testing.T) {
	for name, newStore := range engines(t) {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := newStore(WithClock(clock.Now))
			defer store.Close()
			ctx := context.Background()

			id, err := store.Save(ctx, "doc-1", "Report", []byte(`{"text":"hello"}`), "user-42")
			require.NoError(t, err)
			require.NotZero(t, id)

			doc, err := store.GetByID(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, doc)
			assert.Equal(t, id, doc.RecordID)
			assert.Equal(t, "doc-1", doc.DocID)
			assert.Equal(t, "Report", doc.Title)
			assert.Equal(t, []byte(`{"text":"hello"}`), doc.Data)
			assert.Equal(t, "user-42", doc.UserID)
			assert.Equal(t, clock.Now().UnixMilli(), doc.Millis())

			docs, err := store.GetByUser(ctx, "user-42")
			require.NoError(t, err)
			require.NotEmpty(t, docs)
			assert.Equal(t, id, docs[0].RecordID)
		})
	}
}

func TestStore_GetByUserNewestFirst(t *testing.T) {
	for name, newStore := range engines(t) {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := newStore(WithClock(clock.Now))
			defer store.Close()
			ctx := context.Background()

			var ids []core.ID
			for _, title := range []string{"one", "two", "three"} {
				id, err := store.Save(ctx, "doc-"+title, title, nil, "user-1")
				require.NoError(t, err)
				ids = append(ids, id)
				clock.Advance(time.Second)
			}
			_, err := store.Save(ctx, "other", "other", nil, "user-2")
			require.NoError(t, err)

			docs, err := store.GetByUser(ctx, "user-1")
			require.NoError(t, err)
			require.Len(t, docs, 3)
			assert.Equal(t, ids[2], docs[0].RecordID)
			assert.Equal(t, ids[1], docs[1].RecordID)
			assert.Equal(t, ids[0], docs[2].RecordID)
			for i := 1; i < len(docs); i++ {
				assert.False(t, docs[i].Timestamp.After(docs[i-1].Timestamp))
			}
		})
	}
}

func TestStore_DeleteThenGet(t *testing.T) {
	for name, newStore := range engines(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()
			ctx := context.Background()

			id, err := store.Save(ctx, "doc", "title", []byte("x"), "user")
			require.NoError(t, err)

			require.NoError(t, store.Delete(ctx, id))

			doc, err := store.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, doc)

			docs, err := store.GetByUser(ctx, "user")
			require.NoError(t, err)
			assert.Empty(t, docs)
		})
	}
}

func TestStore_AbsentIsNotAnError(t *testing.T) {
	for name, newStore := range engines(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()
			ctx := context.Background()

			doc, err := store.GetByID(ctx, 4242)
			require.NoError(t, err)
			assert.Nil(t, doc)

			assert.NoError(t, store.Delete(ctx, 4242))

			docs, err := store.GetByUser(ctx, "nobody")
			require.NoError(t, err)
			assert.NotNil(t, docs)
			assert.Empty(t, docs)
		})
	}
}

func TestStore_RevisionsShareDocID(t *testing.T) {
	for name, newStore := range engines(t) {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := newStore(WithClock(clock.Now))
			defer store.Close()
			ctx := context.Background()

			first, err := store.Save(ctx, "doc-1", "draft", []byte("v1"), "user-1")
			require.NoError(t, err)
			clock.Advance(time.Millisecond)
			second, err := store.Save(ctx, "doc-1", "final", []byte("v2"), "user-1")
			require.NoError(t, err)
			assert.NotEqual(t, first, second)

			docs, err := store.GetByUser(ctx, "user-1")
			require.NoError(t, err)
			require.Len(t, docs, 2)
			assert.Equal(t, "final", docs[0].Title)
			assert.Equal(t, "draft", docs[1].Title)
		})
	}
}

func TestStore_DefaultClockStampsSaveTime(t *testing.T) {
	store := New("", WithInMemory())
	defer store.Close()
	ctx := context.Background()

	before := time.Now().UnixMilli()
	id, err := store.Save(ctx, "doc", "t", nil, "u")
	require.NoError(t, err)
	after := time.Now().UnixMilli()

	doc, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.GreaterOrEqual(t, doc.Millis(), before)
	assert.LessOrEqual(t, doc.Millis(), after)
}

func TestStore_ConnectionReusedAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")
	ctx := context.Background()

	store := New(path)
	id, err := store.Save(ctx, "doc", "title", []byte("payload"), "user")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store = New(path)
	defer store.Close()
	doc, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, []byte("payload"), doc.Data)

	next, err := store.Save(ctx, "doc", "title", nil, "user")
	require.NoError(t, err)
	assert.Greater(t, next, id)
}

func TestStore_OpenFailureIsReturned(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
	require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

	store := New(tmpFile)
	defer store.Close()

	_, err := store.Save(context.Background(), "doc", "title", nil, "user")
	assert.Error(t, err)

	// Not cached: the next call tries again and fails the same way
	_, err = store.GetByID(context.Background(), 1)
	assert.Error(t, err)
}

func TestStore_Closed(t *testing.T) {
	store := New("", WithInMemory())
	_, err := store.Save(context.Background(), "doc", "title", nil, "user")
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	_, err = store.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestStore_CloseWithoutUse(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "unused"))
	assert.NoError(t, store.Close())
}

func TestStore_UnknownEngine(t *testing.T) {
	store := New(t.TempDir(), WithEngine("leveldb"))
	defer store.Close()

	_, err := store.GetByUser(context.Background(), "u")
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestStore_BoltInMemoryUnsupported(t *testing.T) {
	store := New("", WithEngine(EngineBolt), WithInMemory())
	defer store.Close()

	_, err := store.GetByUser(context.Background(), "u")
	assert.ErrorIs(t, err, ErrInMemoryUnsupported)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	for name, newStore := range engines(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()
			ctx := context.Background()

			const n = 50
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.Save(ctx, "doc", "title", nil, "busy")
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				assert.NoError(t, err)
			}

			docs, err := store.GetByUser(ctx, "busy")
			require.NoError(t, err)
			assert.Len(t, docs, n)
		})
	}
}

func TestStore_TiesKeepInsertOrder(t *testing.T) {
	for name, newStore := range engines(t) {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			store := newStore(WithClock(clock.Now))
			defer store.Close()
			ctx := context.Background()

			var ids []core.ID
			for i := 0; i < 3; i++ {
				id, err := store.Save(ctx, "d", "same time", nil, "u")
				require.NoError(t, err)
				ids = append(ids, id)
			}

			docs, err := store.GetByUser(ctx, "u")
			require.NoError(t, err)
			require.Len(t, docs, 3)
			for i, doc := range docs {
				assert.Equal(t, ids[i], doc.RecordID)
			}
		})
	}
}

func TestStore_SimilarUserIDs(t *testing.T) {
	for name, newStore := range engines(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()
			ctx := context.Background()

			_, err := store.Save(ctx, "1", "short", nil, "a")
			require.NoError(t, err)
			_, err = store.Save(ctx, "2", "long", nil, "ab")
			require.NoError(t, err)

			docs, err := store.GetByUser(ctx, "a")
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, "1", docs[0].DocID)

			docs, err = store.GetByUser(ctx, "ab")
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.Equal(t, "2", docs[0].DocID)
		})
	}
}

func TestStore_EmptyPayloadIsNil(t *testing.T) {
	for name, newStore := range engines(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			defer store.Close()
			ctx := context.Background()

			for _, data := range [][]byte{nil, {}} {
				id, err := store.Save(ctx, "doc", "empty", data, "u")
				require.NoError(t, err)

				doc, err := store.GetByID(ctx, id)
				require.NoError(t, err)
				require.NotNil(t, doc)
				assert.Nil(t, doc.Data)
			}
		})
	}
}

func TestStore_CloseDuringSaves(t *testing.T) {
	store := New("", WithInMemory())
	ctx := context.Background()

	// Open the connection before the writers start.
	_, err := store.Save(ctx, "doc", "title", nil, "u")
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers*100)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := store.Save(ctx, "doc", "title", nil, "u")
				errs <- err
				if errors.Is(err, storage.ErrStorageClosed) {
					return
				}
			}
		}()
	}
	require.NoError(t, store.Close())
	wg.Wait()
	close(errs)

	for err := range errs {
		if err == nil {
			continue
		}
		assert.True(t,
			errors.Is(err, storage.ErrStorageClosed) || errors.Is(err, badgerdb.ErrDBClosed),
			"unexpected error: %v", err)
	}

	_, err = store.Save(ctx, "doc", "title", nil, "u")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestParseEngine(t *testing.T) {
	engine, err := ParseEngine("bolt")
	require.NoError(t, err)
	assert.Equal(t, EngineBolt, engine)

	engine, err = ParseEngine("badger")
	require.NoError(t, err)
	assert.Equal(t, EngineBadger, engine)

	_, err = ParseEngine("sqlite")
	assert.ErrorIs(t, err, ErrUnknownEngine)
}
