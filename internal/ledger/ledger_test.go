package ledger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// storeUnderTest runs the same assertions against both implementations.
func storeUnderTest(t *testing.T, name string) Store {
	t.Helper()

	if name == "memory" {
		return NewMemoryStore()
	}

	s, err := NewSQLiteStore(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestStore_AppendAndListAll(t *testing.T) {
	for _, impl := range []string{"memory", "sqlite"} {
		t.Run(impl, func(t *testing.T) {
			s := storeUnderTest(t, impl)
			ctx := context.Background()

			first := Record{
				Name:       "report.pdf",
				FileID:     "drive-1",
				Link:       "https://drive.google.com/file/d/drive-1/view",
				Size:       2048,
				UploadedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			}
			require.NoError(t, s.Append(ctx, first))
			require.NoError(t, s.Append(ctx, Record{
				Name:   "photo.jpg",
				FileID: "drive-2",
				Link:   "https://drive.google.com/file/d/drive-2/view",
				Size:   512,
			}))

			all, err := s.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)

			// Insertion order is preserved.
			assert.Equal(t, "report.pdf", all[0].Name)
			assert.Equal(t, "photo.jpg", all[1].Name)
			assert.Equal(t, "drive-1", all[0].FileID)
			assert.EqualValues(t, 2048, all[0].Size)
			assert.True(t, all[0].ID < all[1].ID)

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)
		})
	}
}

func TestStore_ListAllIdempotent(t *testing.T) {
	for _, impl := range []string{"memory", "sqlite"} {
		t.Run(impl, func(t *testing.T) {
			s := storeUnderTest(t, impl)
			ctx := context.Background()

			require.NoError(t, s.Append(ctx, Record{Name: "a", FileID: "1", Link: "l1"}))
			require.NoError(t, s.Append(ctx, Record{Name: "b", FileID: "2", Link: "l2"}))

			first, err := s.ListAll(ctx)
			require.NoError(t, err)

			second, err := s.ListAll(ctx)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestStore_EmptyList(t *testing.T) {
	for _, impl := range []string{"memory", "sqlite"} {
		t.Run(impl, func(t *testing.T) {
			s := storeUnderTest(t, impl)

			all, err := s.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)

			n, err := s.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, testLogger())
	require.NoError(t, err)

	uploaded := time.Date(2025, 6, 15, 8, 30, 0, 0, time.UTC)
	require.NoError(t, s.Append(ctx, Record{
		Name:       "backup.tar",
		FileID:     "drive-9",
		Link:       "https://drive.google.com/file/d/drive-9/view",
		Size:       1 << 20,
		UploadedAt: uploaded,
	}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path, testLogger())
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "backup.tar", all[0].Name)
	assert.True(t, all[0].UploadedAt.Equal(uploaded))
}

func TestSQLiteStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "ledger.db")

	s, err := NewSQLiteStore(path, testLogger())
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}
