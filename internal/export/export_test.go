package export_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/glucobot/glucobot/internal/export"
	"github.com/glucobot/glucobot/internal/memory"
)

type mockJournal struct {
	records []*memory.ExportRecord
	err     error
}

func (m *mockJournal) RecordExport(rec *memory.ExportRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockJournal) ListExports(int) ([]*memory.ExportRecord, error) { return m.records, nil }
func (m *mockJournal) Close() error                                  { return nil }

type mockUploader struct {
	keys []string
	err  error
}

func (m *mockUploader) Upload(_ context.Context, key, localPath string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return "gs://test-bucket/" + key, nil
}

type mockOpener struct {
	opened []string
	err    error
}

func (m *mockOpener) Open(path string) error {
	m.opened = append(m.opened, path)
	return m.err
}

var fixedTime = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func clock() time.Time { return fixedTime }

func turns() []memory.Turn {
	return []memory.Turn{
		{Role: memory.RoleUser, Content: "Show raw data for patient 032"},
		{Role: memory.RoleBot, Content: "Displaying raw data for patient 032 in your browser. Glucose 70–140 mg/dL"},
		{Role: memory.RoleUser, Content: "export this"},
	}
}

func TestFileName(t *testing.T) {
	gt.Equal(t, export.FileName("", fixedTime), "conversation_log_20250314_092653.pdf")
	gt.Equal(t, export.FileName("032", fixedTime), "conversation_log_patient_032_20250314_092653.pdf")
}

func TestExport_Empty(t *testing.T) {
	journal := &mockJournal{}
	e := export.New(t.TempDir(), export.WithJournal(journal))

	result, err := e.Export(context.Background(), nil, "032")
	gt.NoError(t, err)
	gt.Equal(t, result.Message, export.EmptyMessage)
	gt.Equal(t, result.Path, "")
	gt.A(t, journal.records).Length(0)
}

func TestExport_WritesRecordsUploadsOpens(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	journal := &mockJournal{}
	uploader := &mockUploader{}
	opener := &mockOpener{}

	e := export.New(dir,
		export.WithJournal(journal),
		export.WithUploader(uploader),
		export.WithOpener(opener),
		export.WithClock(clock),
	)

	result, err := e.Export(context.Background(), turns(), "032")
	gt.NoError(t, err)

	wantPath := filepath.Join(dir, "conversation_log_patient_032_20250314_092653.pdf")
	gt.Equal(t, result.Path, wantPath)
	gt.Equal(t, result.RemoteURL, "gs://test-bucket/exports/conversation_log_patient_032_20250314_092653.pdf")
	gt.S(t, result.Message).Contains("Conversation exported to " + wantPath + " and opened in your default PDF viewer.")
	gt.S(t, result.Message).Contains("Uploaded to gs://test-bucket/exports/")

	data, err := os.ReadFile(wantPath)
	gt.NoError(t, err)
	gt.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	gt.A(t, uploader.keys).Length(1)
	gt.Equal(t, uploader.keys[0], "exports/conversation_log_patient_032_20250314_092653.pdf")
	gt.A(t, opener.opened).Length(1)

	gt.A(t, journal.records).Length(1)
	rec := journal.records[0]
	gt.Equal(t, rec.PatientID, "032")
	gt.Equal(t, rec.Turns, 3)
	gt.Equal(t, rec.Path, wantPath)
	gt.Equal(t, rec.RemoteURL, result.RemoteURL)
}

func TestExport_CollaboratorFailuresAreNotFatal(t *testing.T) {
	journal := &mockJournal{err: errors.New("disk full")}
	uploader := &mockUploader{err: errors.New("no credentials")}
	opener := &mockOpener{err: errors.New("no display")}

	e := export.New(t.TempDir(),
		export.WithJournal(journal),
		export.WithUploader(uploader),
		export.WithOpener(opener),
		export.WithClock(clock),
	)

	result, err := e.Export(context.Background(), turns(), "")
	gt.NoError(t, err)
	gt.Equal(t, result.RemoteURL, "")
	gt.S(t, result.Path).Contains("conversation_log_20250314_092653.pdf")
	gt.S(t, result.Message).NotContains("opened")
	gt.S(t, result.Message).NotContains("Uploaded")

	_, err = os.Stat(result.Path)
	gt.NoError(t, err)
}

func TestExport_WithSQLiteJournal(t *testing.T) {
	dir := t.TempDir()
	journal, err := memory.NewSQLiteJournal(filepath.Join(dir, "journal.db"))
	gt.NoError(t, err)
	defer journal.Close()

	e := export.New(dir, export.WithJournal(journal), export.WithClock(clock))
	_, err = e.Export(context.Background(), turns(), "015")
	gt.NoError(t, err)

	records, err := journal.ListExports(10)
	gt.NoError(t, err)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0].PatientID, "015")
}

func TestGCSUploader(t *testing.T) {
	bucket := os.Getenv("TEST_STORAGE_BUCKET")
	if bucket == "" {
		t.Skip("TEST_STORAGE_BUCKET is not set")
	}

	ctx := context.Background()
	uploader, err := export.NewGCSUploader(ctx, bucket)
	gt.NoError(t, err)
	defer uploader.Close()

	local := filepath.Join(t.TempDir(), "log.pdf")
	gt.NoError(t, os.WriteFile(local, []byte("%PDF-1.3 test"), 0644))

	url, err := uploader.Upload(ctx, "exports/test/log.pdf", local)
	gt.NoError(t, err)
	gt.Equal(t, url, "gs://"+bucket+"/exports/test/log.pdf")
}
