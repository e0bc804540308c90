package blob

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var drivers = []string{DriverCGO, DriverPureGo}

func openTestSQLite(t *testing.T, driver string) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blobs.db")
	s, err := OpenSQLite(path, WithDriver(driver))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpenSQLite_CreatesNewDatabase(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			_, path := openTestSQLite(t, driver)

			_, err := os.Stat(path)
			assert.NoError(t, err, "database file was not created")
		})
	}
}

func TestOpenSQLite_UnknownDriver(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "x.db"), WithDriver("postgres"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported sqlite driver")
}

func TestOpenSQLite_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")

	for i := 0; i < 3; i++ {
		s, err := OpenSQLite(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpenSQLite_PragmasApplied(t *testing.T) {
	s, _ := openTestSQLite(t, DriverCGO)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpenSQLite_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")

	db, err := sql.Open(DriverCGO, path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = OpenSQLite(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestSQLite_GetMissing(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s, _ := openTestSQLite(t, driver)

			_, err := s.Get(context.Background(), "main")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSQLite_PutReplacesWholeValue(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s, _ := openTestSQLite(t, driver)
			ctx := context.Background()

			require.NoError(t, s.Put(ctx, "main", []byte("first value, longer")))
			require.NoError(t, s.Put(ctx, "main", []byte("second")))

			got, err := s.Get(ctx, "main")
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), got)

			rev, err := s.Revision(ctx, "main")
			require.NoError(t, err)
			assert.Equal(t, int64(2), rev)
		})
	}
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "blobs.db")
			ctx := context.Background()

			s1, err := OpenSQLite(path, WithDriver(driver))
			require.NoError(t, err)
			require.NoError(t, s1.Put(ctx, "main", []byte{0x00, 0x01, 0xff}))
			require.NoError(t, s1.Close())

			s2, err := OpenSQLite(path, WithDriver(driver))
			require.NoError(t, err)
			defer s2.Close()

			got, err := s2.Get(ctx, "main")
			require.NoError(t, err)
			assert.Equal(t, []byte{0x00, 0x01, 0xff}, got)
		})
	}
}

func TestSQLite_KeysAreIndependent(t *testing.T) {
	s, _ := openTestSQLite(t, DriverCGO)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "main", []byte("a")))
	require.NoError(t, s.Put(ctx, "main.corrupt", []byte("b")))

	got, err := s.Get(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got)

	rev, err := s.Revision(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rev)
}

func TestSQLite_ConcurrentReadersSeeWholeValues(t *testing.T) {
	s, _ := openTestSQLite(t, DriverCGO)
	ctx := context.Background()

	valueA := make([]byte, 4096)
	valueB := make([]byte, 8192)
	for i := range valueA {
		valueA[i] = 'a'
	}
	for i := range valueB {
		valueB[i] = 'b'
	}
	require.NoError(t, s.Put(ctx, "main", valueA))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			v := valueA
			if i%2 == 0 {
				v = valueB
			}
			_ = s.Put(ctx, "main", v)
		}
	}()

	for i := 0; i < 50; i++ {
		got, err := s.Get(ctx, "main")
		require.NoError(t, err)
		whole := assert.ObjectsAreEqual(valueA, got) || assert.ObjectsAreEqual(valueB, got)
		assert.True(t, whole, "read a partial value of length %d", len(got))
	}
	wg.Wait()
}

func TestSQLite_Closed(t *testing.T) {
	s, _ := openTestSQLite(t, DriverCGO)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err := s.Get(context.Background(), "main")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Put(context.Background(), "main", nil), ErrClosed)
}
