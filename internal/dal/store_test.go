package dal

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every Store backend shares.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, KindDrafts, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Latest(ctx, "empty_kind")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("keys are lowercased", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, Document{Kind: KindDrafts, Key: "MiXeD", Data: []byte(`{"a":1}`)}))
		data, err := s.Get(ctx, KindDrafts, "mixed")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(data))
	})

	t.Run("latest and list follow creation order", func(t *testing.T) {
		kind := "contract_order"
		for _, k := range []string{"one", "two", "three"} {
			require.NoError(t, s.Put(ctx, Document{Kind: kind, Key: k, Data: []byte(`{"k":"` + k + `"}`)}))
		}
		// Overwriting keeps the original creation position.
		require.NoError(t, s.Put(ctx, Document{Kind: kind, Key: "one", Data: []byte(`{"k":"uno"}`)}))

		latest, err := s.Latest(ctx, kind)
		require.NoError(t, err)
		assert.Equal(t, "three", latest.Key)

		docs, err := s.List(ctx, kind)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, []string{"one", "two", "three"}, []string{docs[0].Key, docs[1].Key, docs[2].Key})
		assert.JSONEq(t, `{"k":"uno"}`, string(docs[0].Data))
	})

	t.Run("batch writes every document", func(t *testing.T) {
		err := s.Put(ctx,
			Document{Kind: "contract_batch_a", Key: "x", Data: []byte(`{"v":1}`)},
			Document{Kind: "contract_batch_b", Key: "x", Data: []byte(`{"v":2}`)},
		)
		require.NoError(t, err)
		a, err := s.Get(ctx, "contract_batch_a", "x")
		require.NoError(t, err)
		b, err := s.Get(ctx, "contract_batch_b", "x")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":1}`, string(a))
		assert.JSONEq(t, `{"v":2}`, string(b))
	})

	t.Run("invalid batch writes nothing", func(t *testing.T) {
		err := s.Put(ctx,
			Document{Kind: "contract_reject", Key: "ok", Data: []byte(`{}`)},
			Document{Kind: "contract_reject", Key: "  ", Data: []byte(`{}`)},
		)
		require.Error(t, err)
		_, err = s.Get(ctx, "contract_reject", "ok")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreContract(t, s)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	data := []byte(`{"v":1}`)
	require.NoError(t, s.Put(ctx, Document{Kind: "k", Key: "a", Data: data}))
	data[5] = '9'

	got, err := s.Get(ctx, "k", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "draft.db"))
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)
}

func TestSQLiteStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "draft.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, Document{Kind: KindDrafts, Key: "d1", Data: []byte(`{"id":"d1"}`)}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	data, err := s.Get(ctx, KindDrafts, "d1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"d1"}`, string(data))
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	s, err := NewPostgresStore(url)
	require.NoError(t, err)
	defer s.Close()
	_, err = s.db.Exec(`DELETE FROM documents WHERE kind LIKE 'contract_%'`)
	require.NoError(t, err)
	runStoreContract(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	s, err := NewRedisStore(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), db)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.client.FlushDB(context.Background()).Err())
	runStoreContract(t, s)
}
