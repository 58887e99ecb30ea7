package attendance

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scanattend/internal/testutil"
)

func newRepo(t *testing.T) *Repository {
	return NewRepository(testutil.NewSQLite(t).Client)
}

func TestRegistryEnrollAndResolve(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(newRepo(t))

	t.Run("enroll normalizes code", func(t *testing.T) {
		s, err := reg.Enroll(ctx, " Bob ", "EE", "xyz789")
		require.NoError(t, err)
		assert.Equal(t, "XYZ789", s.Code)
		assert.Equal(t, "Bob", s.Name)
	})

	t.Run("resolve is case-insensitive", func(t *testing.T) {
		s, found, err := reg.Resolve(ctx, "xYz789 ")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "Bob", s.Name)
		assert.Equal(t, "EE", s.Major)
	})

	t.Run("resolve miss", func(t *testing.T) {
		_, found, err := reg.Resolve(ctx, "NOPE00")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("rejects duplicate code in any case", func(t *testing.T) {
		_, err := reg.Enroll(ctx, "Robert", "CS", "XYZ789")
		assert.ErrorIs(t, err, ErrSubjectExists)
	})

	t.Run("rejects wrong length and missing fields", func(t *testing.T) {
		_, err := reg.Enroll(ctx, "Carol", "CS", "ABC12")
		assert.ErrorIs(t, err, ErrInvalidSubject)
		_, err = reg.Enroll(ctx, "Carol", "", "ABC123")
		assert.ErrorIs(t, err, ErrInvalidSubject)
	})

	t.Run("list", func(t *testing.T) {
		subjects, err := reg.List(ctx)
		require.NoError(t, err)
		require.Len(t, subjects, 1)
		assert.Equal(t, "XYZ789", subjects[0].Code)
	})
}

func TestLedgerRecordIsIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newRepo(t))
	e := Entry{Name: "Alice", Major: "CS", Code: "ABC123", Date: "2026-10-17", Source: "camera", At: time.Now()}

	has, err := ledger.HasRecordToday(ctx, "ABC123", e.Date)
	require.NoError(t, err)
	assert.False(t, has)

	created, err := ledger.RecordAttendance(ctx, e)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = ledger.RecordAttendance(ctx, e)
	require.NoError(t, err)
	assert.False(t, created, "second write for the same day reports created=false")

	lower := e
	lower.Code = "abc123"
	created, err = ledger.RecordAttendance(ctx, lower)
	require.NoError(t, err)
	assert.False(t, created, "codes are normalized before the uniqueness check")

	has, err = ledger.HasRecordToday(ctx, "abc123", e.Date)
	require.NoError(t, err)
	assert.True(t, has)

	records, err := ledger.List(ctx, Filter{Code: "ABC123"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Scans)
	assert.Equal(t, "camera", records[0].Source)
}

func TestLedgerTotalScansCountsDays(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newRepo(t))
	for _, day := range []string{"2026-10-15", "2026-10-16", "2026-10-16", "2026-10-17"} {
		_, err := ledger.RecordAttendance(ctx, Entry{Name: "Alice", Code: "ABC123", Date: day, At: time.Now()})
		require.NoError(t, err)
	}
	_, err := ledger.RecordAttendance(ctx, Entry{Name: "Bob", Code: "XYZ789", Date: "2026-10-17", At: time.Now()})
	require.NoError(t, err)

	total, err := ledger.TotalScans(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	total, err = ledger.TotalScans(ctx, "QQQ000")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestLedgerConcurrentWritersCreateOnce(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newRepo(t))
	e := Entry{Name: "Alice", Major: "CS", Code: "ABC123", Date: "2026-10-17", At: time.Now()}

	var created, dup atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.RecordAttendance(ctx, e)
			if !assert.NoError(t, err) {
				return
			}
			if ok {
				created.Add(1)
			} else {
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, 15, dup.Load())
}

func TestLedgerListOrderingAndPaging(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newRepo(t))
	for _, e := range []Entry{
		{Name: "Alice", Code: "ABC123", Date: "2026-10-16"},
		{Name: "Bob", Code: "XYZ789", Date: "2026-10-17"},
		{Name: "Alice", Code: "ABC123", Date: "2026-10-17"},
	} {
		e.At = time.Now()
		_, err := ledger.RecordAttendance(ctx, e)
		require.NoError(t, err)
	}

	all, err := ledger.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ABC123", all[0].Code, "same day: higher id first")
	assert.Equal(t, "XYZ789", all[1].Code)
	assert.Equal(t, "2026-10-16", all[2].Date)

	day, err := ledger.List(ctx, Filter{Date: "2026-10-17"})
	require.NoError(t, err)
	assert.Len(t, day, 2)

	page, err := ledger.List(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "XYZ789", page[0].Code)
}

func TestExportFormats(t *testing.T) {
	records := []Record{
		{ID: 2, Name: "Alice", Major: "CS, evening", Code: "ABC123", Date: "2026-10-17", Scans: 1},
		{ID: 1, Name: "Bob", Major: "EE", Code: "XYZ789", Date: "2026-10-16", Scans: 1},
	}

	var csvBuf bytes.Buffer
	require.NoError(t, WriteCSV(&csvBuf, records))
	lines := strings.Split(strings.TrimSpace(csvBuf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Name,Major,Neptun,Date,Scans", lines[0])
	assert.Equal(t, `2,Alice,"CS, evening",ABC123,2026-10-17,1`, lines[1])
	assert.Equal(t, "1,Bob,EE,XYZ789,2026-10-16,1", lines[2])

	var table bytes.Buffer
	require.NoError(t, WriteTable(&table, records))
	rows := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
	require.Len(t, rows, 4)
	assert.True(t, strings.HasPrefix(rows[0], "ID    Name"))
	assert.Equal(t, strings.Repeat("=", 100), rows[1])
	assert.Contains(t, rows[2], "ABC123")
}

func TestDay(t *testing.T) {
	at := time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-17", Day(at))
}
