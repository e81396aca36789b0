// Package backup exports snapshots of the message store to S3-compatible
// object storage. Payloads are copied in their stored (encoded) form, so a
// snapshot restores byte-for-byte without re-encoding.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophchat/internal/codec"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// Uploader is the part of *s3.Client the exporter needs.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Attachment is the snapshot form of models.Attachment.
type Attachment struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Record is one line of a snapshot. At most one of TextRaw and TextPacked
// is set, mirroring the text union.
type Record struct {
	ID         string      `json:"id"`
	TextRaw    *string     `json:"text_raw,omitempty"`
	TextPacked []byte      `json:"text_packed,omitempty"`
	Image      *Attachment `json:"image,omitempty"`
	File       *Attachment `json:"file,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	Edited     bool        `json:"edited,omitempty"`
	EditedAt   *time.Time  `json:"edited_at,omitempty"`
}

// NewRecord converts a stored message.
func NewRecord(m *models.Message) Record {
	r := Record{ID: m.ID, CreatedAt: m.CreatedAt, Edited: m.Edited, EditedAt: m.EditedAt}
	switch t := m.Text.(type) {
	case codec.RawText:
		s := string(t)
		r.TextRaw = &s
	case codec.PackedText:
		r.TextPacked = []byte(t)
	}
	if m.Image != nil {
		r.Image = &Attachment{Data: m.Image.Data, MimeType: m.Image.MimeType}
	}
	if m.File != nil {
		r.File = &Attachment{Data: m.File.Data, MimeType: m.File.MimeType, FileName: m.File.FileName, Size: m.File.Size}
	}
	return r
}

// Message converts the record back into its stored form.
func (r Record) Message() *models.Message {
	m := &models.Message{ID: r.ID, CreatedAt: r.CreatedAt, Edited: r.Edited, EditedAt: r.EditedAt}
	switch {
	case r.TextPacked != nil:
		m.Text = codec.PackedText(r.TextPacked)
	case r.TextRaw != nil:
		m.Text = codec.RawText(*r.TextRaw)
	}
	if r.Image != nil {
		m.Image = &models.Attachment{Data: r.Image.Data, MimeType: r.Image.MimeType}
	}
	if r.File != nil {
		m.File = &models.Attachment{Data: r.File.Data, MimeType: r.File.MimeType, FileName: r.File.FileName, Size: r.File.Size}
	}
	return m
}

// Result describes a finished export.
type Result struct {
	Key     string
	Records int
	Bytes   int
}

// Exporter writes gzip-compressed JSON-lines snapshots.
type Exporter struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	client      Uploader
	bucket      string
	logger      logging.Logger
	now         func() time.Time
}

func NewExporter(db *sql.DB, m repomanager.RepositoryManager, client Uploader, bucket string, l logging.Logger) *Exporter {
	return &Exporter{
		db:          db,
		repomanager: m,
		client:      client,
		bucket:      bucket,
		logger:      l.With("module", "backup"),
		now:         time.Now,
	}
}

// ObjectKey returns a fresh, date-partitioned snapshot key.
func ObjectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("snapshots/%d/%02d/%02d/%s.jsonl.gz", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Export takes one snapshot and uploads it.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)

	n := 0
	err := e.repomanager.Messages(e.db).Walk(ctx, func(m *models.Message) error {
		n++
		return enc.Encode(NewRecord(m))
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot read: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("snapshot compress: %w", err)
	}

	key := ObjectKey(e.now())
	size := buf.Len()
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(e.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentLength:   aws.Int64(int64(size)),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot upload: %w", err)
	}

	e.logger.Info(ctx, "snapshot uploaded", "bucket", e.bucket, "key", key, "records", n, "bytes", size)
	return &Result{Key: key, Records: n, Bytes: size}, nil
}

// Run exports every interval until ctx is done. Failed exports are logged
// and retried on the next tick.
func (e *Exporter) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := e.Export(ctx); err != nil {
				e.logger.Error(ctx, "snapshot failed", "error", err)
			}
		}
	}
}

// ReadSnapshot decodes a snapshot produced by Export.
func ReadSnapshot(b []byte) ([]Record, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var out []Record
	dec := json.NewDecoder(zr)
	for dec.More() {
		var r Record
		if err := dec.Decode(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
