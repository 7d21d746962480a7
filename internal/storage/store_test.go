package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceAndTreeLifecycle(t *testing.T) {
	s := NewMemStore()

	require.NoError(t, s.CreateNamespace("sales"))
	assert.ErrorIs(t, s.CreateNamespace("sales"), ErrNamespaceExists)

	require.NoError(t, s.CreateTree("sales", "orders"))
	assert.ErrorIs(t, s.CreateTree("sales", "orders"), ErrTreeExists)

	assert.ErrorIs(t, s.DropNamespace("sales"), ErrNamespaceNotEmpty)

	require.NoError(t, s.DropTree("sales", "orders"))
	require.NoError(t, s.DropNamespace("sales"))
	assert.ErrorIs(t, s.DropNamespace("sales"), ErrNamespaceNotFound)
}

func TestWriteReadDeleteOrderedByKey(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.CreateNamespace("s"))
	require.NoError(t, s.CreateTree("s", "t"))

	n, err := s.Write("s", "t", []KV{
		{Key: []byte{0, 0, 0, 3}, Value: []byte("c")},
		{Key: []byte{0, 0, 0, 1}, Value: []byte("a")},
		{Key: []byte{0, 0, 0, 2}, Value: []byte("b")},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	cursor, err := s.Read("s", "t")
	require.NoError(t, err)
	var got []string
	for cursor.Next() {
		got = append(got, string(cursor.KV().Value))
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)

	deleted, err := s.Delete("s", "t", [][]byte{{0, 0, 0, 2}})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	cursor, err = s.Read("s", "t")
	require.NoError(t, err)
	got = nil
	for cursor.Next() {
		got = append(got, string(cursor.KV().Value))
	}
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestWriteUnknownTreeErrors(t *testing.T) {
	s := NewMemStore()
	_, err := s.Write("missing", "t", nil)
	assert.ErrorIs(t, err, ErrNamespaceNotFound)

	require.NoError(t, s.CreateNamespace("s"))
	_, err = s.Write("s", "missing", nil)
	assert.ErrorIs(t, err, ErrTreeNotFound)
}

func TestDeleteUnknownKeyIsNoop(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.CreateNamespace("s"))
	require.NoError(t, s.CreateTree("s", "t"))

	n, err := s.Delete("s", "t", [][]byte{{9, 9}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
