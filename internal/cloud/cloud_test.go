package cloud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_FindMissing(t *testing.T) {
	m := NewMemory()
	h, err := m.Find(context.Background(), "coinvault_backup.json.gz")
	require.NoError(t, err)
	assert.Nil(t, h, "missing file must yield a nil handle, not an error")
}

func TestMemory_UploadDownload(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	data := []byte(`{"coins":[]}`)
	h, err := m.Upload(ctx, "backup.json", data)
	require.NoError(t, err)
	assert.Equal(t, "backup.json", h.Key)
	assert.Equal(t, int64(len(data)), h.Size)

	found, err := m.Find(ctx, "backup.json")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.Modified.IsZero())

	got, err := m.Download(ctx, found)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestMemory_UploadOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Upload(ctx, "backup.json", []byte("v1"))
	require.NoError(t, err)
	_, err = m.Upload(ctx, "backup.json", []byte("v2 longer"))
	require.NoError(t, err)

	h, err := m.Find(ctx, "backup.json")
	require.NoError(t, err)
	got, err := m.Download(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "v2 longer", string(got))
}

func TestMemory_DownloadIsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Upload(ctx, "f", []byte("abc"))
	require.NoError(t, err)

	h, err := m.Find(ctx, "f")
	require.NoError(t, err)
	got, err := m.Download(ctx, h)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := m.Download(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again), "stored bytes must not be mutable through a download copy")
}
