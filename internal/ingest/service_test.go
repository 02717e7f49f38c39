package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/reperio/internal/common"
	"github.com/ternarybob/reperio/internal/models"
	storage "github.com/ternarybob/reperio/internal/storage/badger"
)

func newTestService(t *testing.T) (*Service, *storage.JobQueue) {
	t.Helper()

	db, err := storage.NewBadgerDB(common.GetLogger(), &common.StoreConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	queue := storage.NewJobQueue(db, common.QueueConfig{MaxAttempts: 3, RetryBackoffBase: time.Second}, common.GetLogger())
	svc := NewService(common.IngestConfig{MaxUploadBytes: 1 << 20, MaxRows: 100}, queue, common.GetLogger())
	return svc, queue
}

func TestIngest_UTF8(t *testing.T) {
	svc, queue := newTestService(t)

	body := []byte("Name,Address,City,Postal_Code\n" +
		"Bäckerei Müller,Bahnhofstrasse 1,Zürich,8001\n" +
		"\n" +
		"Café de la Paix,Rue du Rhône 5,Genève,1204\n" +
		",,,\n" +
		"Trattoria Rossi,Via Nassa 10,Lugano,6900\n")

	summary, err := svc.Ingest(context.Background(), body)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.JobsCreated)
	assert.Equal(t, "utf-8", summary.Encoding)
	assert.False(t, summary.BOMRemoved)
	assert.Contains(t, summary.BatchID, "batch_")

	jobs, err := queue.ListBatch(context.Background(), summary.BatchID)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "Bäckerei Müller", jobs[0].Input.Name)
	assert.Equal(t, "8001", jobs[0].Input.PostalCode)
	assert.Equal(t, "Genève", jobs[1].Input.City)
	assert.Equal(t, models.JobStateWaiting, jobs[2].State)
}

func TestIngest_UTF8BOM(t *testing.T) {
	svc, _ := newTestService(t)

	body := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,city\nMüller AG,Bern\n")...)
	summary, err := svc.Ingest(context.Background(), body)
	require.NoError(t, err)

	assert.True(t, summary.BOMRemoved)
	assert.Equal(t, 1, summary.JobsCreated)
}

func TestIngest_ISO88591(t *testing.T) {
	svc, queue := newTestService(t)

	// "Bäckerei Müller,Zürich" with 0xE4/0xFC single-byte umlauts.
	body := []byte("name,city\nB\xe4ckerei M\xfcller,Z\xfcrich\n")
	summary, err := svc.Ingest(context.Background(), body)
	require.NoError(t, err)

	// The statistical detector may settle on either legacy label; both decode
	// these bytes identically.
	assert.Contains(t, []string{"iso-8859-1", "windows-1252"}, summary.Encoding)

	jobs, err := queue.ListBatch(context.Background(), summary.BatchID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Bäckerei Müller", jobs[0].Input.Name)
	assert.Equal(t, "Zürich", jobs[0].Input.City)
}

func TestIngest_HeaderAliasesAndCase(t *testing.T) {
	svc, queue := newTestService(t)

	body := []byte("NAME, Postcode ,ADDRESS\nHotel Krone,3011,Marktgasse 9\n")
	summary, err := svc.Ingest(context.Background(), body)
	require.NoError(t, err)

	jobs, err := queue.ListBatch(context.Background(), summary.BatchID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Hotel Krone", jobs[0].Input.Name)
	assert.Equal(t, "3011", jobs[0].Input.PostalCode)
	assert.Equal(t, "Marktgasse 9", jobs[0].Input.Address)
}

func TestIngest_NoEnqueueableRows(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		body string
	}{
		{"header only", "name,address,city\n"},
		{"rows missing name and address", "name,address,city\n,,Bern\n,,Basel\n"},
		{"empty body", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), []byte(tt.body))
			assert.ErrorIs(t, err, ErrNoRecords)
		})
	}
}

func TestIngest_RowLimit(t *testing.T) {
	svc, _ := newTestService(t)
	svc.cfg.MaxRows = 2

	body := []byte("name\na\nb\nc\n")
	_, err := svc.Ingest(context.Background(), body)
	assert.ErrorIs(t, err, ErrTooManyRows)
}
