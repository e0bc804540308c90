package recorder

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loctrack/internal/blob"
	"github.com/roach88/loctrack/internal/durability"
	"github.com/roach88/loctrack/internal/location"
	"github.com/roach88/loctrack/internal/store"
	"github.com/roach88/loctrack/internal/testutil"
)

var exportTime = time.Date(2024, 3, 15, 9, 30, 0, 123_000_000, time.UTC)

func fixedOptions() []Option {
	return []Option{
		WithExportClock(func() time.Time { return exportTime }),
		WithStoreOptions(store.WithNow(func() time.Time { return time.UnixMilli(1700000100000) })),
	}
}

func openRecorder(t *testing.T, backend blob.Backend) *Recorder {
	t.Helper()
	mgr := durability.New(backend)
	t.Cleanup(func() { _ = mgr.Close() })

	r, err := Open(context.Background(), mgr, fixedOptions()...)
	require.NoError(t, err)
	return r
}

func tokyo() location.Position {
	return location.Position{Latitude: 35.681236, Longitude: 139.767125, Accuracy: location.Accuracy(8), Timestamp: 1700000000000}
}

func osaka() location.Position {
	return location.Position{Latitude: 34.693738, Longitude: 135.502165, Timestamp: 1700000060000}
}

func goldenFor(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestSave_AssignsIDsAndFlushes(t *testing.T) {
	backend := blob.NewMemory()
	r := openRecorder(t, backend)
	ctx := context.Background()

	first, err := r.Save(ctx, tokyo())
	require.NoError(t, err)
	second, err := r.Save(ctx, osaka())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.ID)
	assert.Equal(t, uint64(2), second.ID)
	assert.Equal(t, 2, backend.Puts(), "one flush per save")
	assert.NoError(t, r.LoadErr())
}

func TestSave_InvalidSampleNotFlushed(t *testing.T) {
	backend := blob.NewMemory()
	r := openRecorder(t, backend)

	bad := tokyo()
	bad.Latitude = math.NaN()
	_, err := r.Save(context.Background(), bad)
	assert.True(t, location.IsKind(err, location.KindInvalidSample))
	assert.Equal(t, 0, backend.Puts())
	assert.Equal(t, uint64(0), r.Count())
}

func TestSave_FlushFailureKeepsMutation(t *testing.T) {
	backend := testutil.NewBlockingBackend()
	r := openRecorder(t, backend)
	backend.FailPuts(errors.New("disk full"))

	sample, err := r.Save(context.Background(), tokyo())
	require.Error(t, err)
	assert.True(t, location.IsKind(err, location.KindDurabilityWriteFailed))
	assert.Equal(t, uint64(1), sample.ID, "sample is returned with the error")
	assert.Equal(t, uint64(1), r.Count(), "no rollback")
}

func TestClear_KeepsCounter(t *testing.T) {
	r := openRecorder(t, blob.NewMemory())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := r.Save(ctx, tokyo())
		require.NoError(t, err)
	}
	require.NoError(t, r.Clear(ctx))
	require.NoError(t, r.Clear(ctx), "clear is idempotent")
	assert.Equal(t, uint64(0), r.Count())

	next, err := r.Save(ctx, tokyo())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next.ID)
}

func TestDurabilityRoundTrip_ExportBytesEqual(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loctrack.db")
	ctx := context.Background()

	backend, err := blob.OpenSQLite(path)
	require.NoError(t, err)
	mgr := durability.New(backend)
	r, err := Open(ctx, mgr, fixedOptions()...)
	require.NoError(t, err)

	_, err = r.Save(ctx, tokyo())
	require.NoError(t, err)
	_, err = r.Save(ctx, osaka())
	require.NoError(t, err)
	before, err := r.Export(0)
	require.NoError(t, err)

	require.NoError(t, mgr.Close())
	require.NoError(t, backend.Close())

	backend, err = blob.OpenSQLite(path)
	require.NoError(t, err)
	defer backend.Close()
	mgr = durability.New(backend)
	defer mgr.Close()

	reopened, err := Open(ctx, mgr, fixedOptions()...)
	require.NoError(t, err)
	require.NoError(t, reopened.LoadErr())

	after, err := reopened.Export(0)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	next, err := reopened.Save(ctx, tokyo())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next.ID, "counter survives restart")
}

func TestOpen_CorruptSnapshotStartsEmpty(t *testing.T) {
	backend := testutil.NewBlockingBackend()
	require.NoError(t, backend.Seed(durability.DefaultKey, []byte("not an envelope")))

	r := openRecorder(t, backend)
	assert.True(t, location.IsKind(r.LoadErr(), location.KindDurabilityLoadFailed))
	assert.Equal(t, uint64(0), r.Count())
	assert.Len(t, backend.Writes(durability.DefaultKey+".corrupt"), 1)

	sample, err := r.Save(context.Background(), tokyo())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sample.ID)
}

func TestOpen_InvalidSnapshotContentStartsEmpty(t *testing.T) {
	backend := blob.NewMemory()
	data, err := durability.Encode(location.Snapshot{
		NextID: 3,
		Samples: []location.Sample{
			{ID: 1, Latitude: 1, Longitude: 1, Timestamp: 1},
			{ID: 1, Latitude: 2, Longitude: 2, Timestamp: 2},
		},
	})
	require.NoError(t, err)
	require.NoError(t, backend.Put(context.Background(), durability.DefaultKey, data))

	r := openRecorder(t, backend)
	assert.True(t, location.IsKind(r.LoadErr(), location.KindDurabilityLoadFailed))
	assert.Equal(t, uint64(0), r.Count())
}

func TestOpen_CancelledContext(t *testing.T) {
	mgr := durability.New(blob.NewMemory())
	defer mgr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, mgr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentSaves_FlushOrderMatchesMutationOrder(t *testing.T) {
	backend := testutil.NewBlockingBackend()
	r := openRecorder(t, backend)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := tokyo()
			p.Timestamp += int64(i)
			_, err := r.Save(ctx, p)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	writes := backend.Writes(durability.DefaultKey)
	require.Len(t, writes, n)
	for i, data := range writes {
		snap, err := durability.Decode(data)
		require.NoError(t, err)
		assert.Len(t, snap.Samples, i+1, "write %d carries every earlier mutation", i)
	}
}

func TestExport_Golden(t *testing.T) {
	r := openRecorder(t, blob.NewMemory())
	ctx := context.Background()

	_, err := r.Save(ctx, tokyo())
	require.NoError(t, err)
	_, err = r.Save(ctx, osaka())
	require.NoError(t, err)

	data, err := r.Export(0)
	require.NoError(t, err)
	goldenFor(t).Assert(t, "export_two_samples", data)
}

func TestExport_EmptyGolden(t *testing.T) {
	r := openRecorder(t, blob.NewMemory())

	data, err := r.Export(0)
	require.NoError(t, err)
	goldenFor(t).Assert(t, "export_empty", data)
}

func TestExport_MaxRecords(t *testing.T) {
	r := openRecorder(t, blob.NewMemory())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		p := tokyo()
		p.Timestamp += int64(i)
		_, err := r.Save(ctx, p)
		require.NoError(t, err)
	}

	data, err := r.Export(2)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"totalRecords": 2`)
}

func TestExportFileName(t *testing.T) {
	r := openRecorder(t, blob.NewMemory())
	assert.Equal(t, "location-data-2024-03-15.json", r.ExportFileName())

	late := time.Date(2024, 3, 15, 23, 30, 0, 0, time.FixedZone("JST", 9*3600))
	assert.Equal(t, "location-data-2024-03-15.json", FileName(late), "date is taken in UTC")
}
