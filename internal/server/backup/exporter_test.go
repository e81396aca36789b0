package backup

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophchat/internal/codec"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/google/go-cmp/cmp"
)

type fakeRepo struct {
	messages.Repository
	msgs    []*models.Message
	walkErr error
}

func (f *fakeRepo) Walk(ctx context.Context, fn func(*models.Message) error) error {
	if f.walkErr != nil {
		return f.walkErr
	}
	for _, m := range f.msgs {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

type fakeRepoManager struct{ repo *fakeRepo }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Messages(dbx.DBTX) messages.Repository       { return m.repo }

type fakeUploader struct {
	mu     sync.Mutex
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (u *fakeUploader) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return nil, u.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	u.inputs = append(u.inputs, in)
	u.bodies = append(u.bodies, b)
	return &s3.PutObjectOutput{}, nil
}

func (u *fakeUploader) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.inputs)
}

func sampleMessages() []*models.Message {
	ts := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	edited := ts.Add(time.Hour)
	return []*models.Message{
		{ID: "a", Text: codec.RawText("hello"), CreatedAt: ts},
		{
			ID:        "b",
			Text:      codec.PackedText{1, 2, 3},
			Image:     &models.Attachment{Data: []byte{4, 5}, MimeType: "image/png"},
			File:      &models.Attachment{Data: []byte{6}, MimeType: "text/plain", FileName: "a.txt", Size: 99},
			CreatedAt: ts.Add(time.Minute),
			Edited:    true,
			EditedAt:  &edited,
		},
		{ID: "c", Image: &models.Attachment{Data: []byte{7}}, CreatedAt: ts.Add(2 * time.Minute)},
	}
}

func newTestExporter(repo *fakeRepo, up *fakeUploader) *Exporter {
	e := NewExporter(nil, &fakeRepoManager{repo: repo}, up, "backups", logging.Nop{})
	e.now = func() time.Time { return time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC) }
	return e
}

func TestExport_WritesStoredFormSnapshot(t *testing.T) {
	msgs := sampleMessages()
	up := &fakeUploader{}
	e := newTestExporter(&fakeRepo{msgs: msgs}, up)

	res, err := e.Export(context.Background())
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if res.Records != 3 || res.Bytes == 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.HasPrefix(res.Key, "snapshots/2025/02/03/") || !strings.HasSuffix(res.Key, ".jsonl.gz") {
		t.Fatalf("unexpected key %q", res.Key)
	}

	if up.calls() != 1 {
		t.Fatalf("want one upload, got %d", up.calls())
	}
	in := up.inputs[0]
	if *in.Bucket != "backups" || *in.Key != res.Key || *in.ContentEncoding != "gzip" || *in.ContentLength != int64(res.Bytes) {
		t.Fatalf("unexpected put input: bucket=%s key=%s", *in.Bucket, *in.Key)
	}

	records, err := ReadSnapshot(up.bodies[0])
	if err != nil {
		t.Fatalf("ReadSnapshot error: %v", err)
	}
	got := make([]*models.Message, len(records))
	for i, r := range records {
		got[i] = r.Message()
	}
	if diff := cmp.Diff(msgs, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_Errors(t *testing.T) {
	e := newTestExporter(&fakeRepo{walkErr: errors.New("db down")}, &fakeUploader{})
	if _, err := e.Export(context.Background()); err == nil || !strings.Contains(err.Error(), "snapshot read") {
		t.Fatalf("want read error, got %v", err)
	}

	e = newTestExporter(&fakeRepo{msgs: sampleMessages()}, &fakeUploader{err: errors.New("403")})
	if _, err := e.Export(context.Background()); err == nil || !strings.Contains(err.Error(), "snapshot upload") {
		t.Fatalf("want upload error, got %v", err)
	}
}

func TestExport_EmptyStore(t *testing.T) {
	up := &fakeUploader{}
	res, err := newTestExporter(&fakeRepo{}, up).Export(context.Background())
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if res.Records != 0 {
		t.Fatalf("want 0 records, got %d", res.Records)
	}
	records, err := ReadSnapshot(up.bodies[0])
	if err != nil || len(records) != 0 {
		t.Fatalf("empty snapshot: %v, %d records", err, len(records))
	}
}

func TestRun_ExportsOnTickAndStops(t *testing.T) {
	up := &fakeUploader{}
	e := newTestExporter(&fakeRepo{msgs: sampleMessages()}, up)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, 10*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for up.calls() < 2 {
		select {
		case <-deadline:
			t.Fatal("no periodic exports")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRun_DisabledInterval(t *testing.T) {
	if err := newTestExporter(&fakeRepo{}, &fakeUploader{}).Run(context.Background(), 0); err != nil {
		t.Fatalf("Run error: %v", err)
	}
}

func TestReadSnapshot_NotGzip(t *testing.T) {
	if _, err := ReadSnapshot([]byte("plain")); err == nil {
		t.Fatal("expected error")
	}
}
