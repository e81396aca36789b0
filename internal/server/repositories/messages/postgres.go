// Package messages provides the PostgreSQL-backed message store.
package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/codec"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

const selectColumns = `id, text_raw, text_packed, image_data, image_mime, file_data, file_name, file_mime, file_size, created_at, edited, edited_at`

// PostgresRepository implements message storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts msg. The text union is split over two nullable columns,
// at most one of which is set.
func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, text_raw, text_packed, image_data, image_mime, file_data, file_name, file_mime, file_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	raw, packed := textColumns(msg.Text)
	image := attachmentColumns(msg.Image)
	file := attachmentColumns(msg.File)

	_, err := r.db.ExecContext(ctx, query,
		msg.ID, raw, packed,
		image.data, image.mime,
		file.data, file.name, file.mime, file.size,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns the message with the given id or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + selectColumns + ` FROM messages WHERE id = $1`

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msg, nil
}

// List returns up to Limit messages inside the range, oldest first. When more
// match, the newest ones win so a client paging backwards with Before sees
// contiguous history.
func (r *PostgresRepository) List(ctx context.Context, rng models.Range) ([]*models.Message, error) {
	query := `SELECT ` + selectColumns + ` FROM messages
		WHERE ($1::timestamptz IS NULL OR created_at < $1)
		  AND ($2::timestamptz IS NULL OR created_at > $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, nullTime(rng.Before), nullTime(rng.After), clampLimit(rng.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.Reverse(result)
	return result, nil
}

// UpdateText replaces the stored text wholesale and marks the message edited.
// Attachments are untouched.
func (r *PostgresRepository) UpdateText(ctx context.Context, id string, text codec.Text, editedAt time.Time) (*models.Message, error) {
	query := `UPDATE messages
		SET text_raw = $2, text_packed = $3, edited = TRUE, edited_at = $4
		WHERE id = $1
		RETURNING ` + selectColumns

	raw, packed := textColumns(text)
	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, id, raw, packed, editedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msg, nil
}

// Delete removes the message with the given id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Walk calls fn for every stored message, oldest first, stopping at the
// first error fn returns.
func (r *PostgresRepository) Walk(ctx context.Context, fn func(*models.Message) error) error {
	query := `SELECT ` + selectColumns + ` FROM messages ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to select messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Usage counts messages and the payload bytes they hold in the store.
func (r *PostgresRepository) Usage(ctx context.Context) (models.Usage, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(
			COALESCE(octet_length(text_raw), 0) +
			COALESCE(octet_length(text_packed), 0) +
			COALESCE(octet_length(image_data), 0) +
			COALESCE(octet_length(file_data), 0)
		), 0) FROM messages`

	var u models.Usage
	if err := r.db.QueryRowContext(ctx, query).Scan(&u.Messages, &u.StoredBytes); err != nil {
		return models.Usage{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*models.Message, error) {
	var (
		msg        models.Message
		textRaw    sql.NullString
		textPacked []byte
		imageData  []byte
		imageMime  sql.NullString
		fileData   []byte
		fileName   sql.NullString
		fileMime   sql.NullString
		fileSize   sql.NullInt64
		editedAt   sql.NullTime
	)

	if err := s.Scan(
		&msg.ID, &textRaw, &textPacked,
		&imageData, &imageMime,
		&fileData, &fileName, &fileMime, &fileSize,
		&msg.CreatedAt, &msg.Edited, &editedAt,
	); err != nil {
		return nil, err
	}

	msg.Text = textFromColumns(textRaw, textPacked)
	if imageData != nil {
		msg.Image = &models.Attachment{Data: imageData, MimeType: imageMime.String}
	}
	if fileData != nil {
		msg.File = &models.Attachment{Data: fileData, MimeType: fileMime.String, FileName: fileName.String, Size: fileSize.Int64}
	}
	if editedAt.Valid {
		t := editedAt.Time
		msg.EditedAt = &t
	}
	return &msg, nil
}

func textColumns(t codec.Text) (sql.NullString, []byte) {
	switch v := t.(type) {
	case codec.RawText:
		return sql.NullString{String: string(v), Valid: true}, nil
	case codec.PackedText:
		return sql.NullString{}, []byte(v)
	default:
		return sql.NullString{}, nil
	}
}

func textFromColumns(raw sql.NullString, packed []byte) codec.Text {
	switch {
	case packed != nil:
		return codec.PackedText(packed)
	case raw.Valid:
		return codec.RawText(raw.String)
	default:
		return nil
	}
}

type attachmentRow struct {
	data []byte
	mime sql.NullString
	name sql.NullString
	size sql.NullInt64
}

func attachmentColumns(a *models.Attachment) attachmentRow {
	if a == nil {
		return attachmentRow{}
	}
	row := attachmentRow{
		data: a.Data,
		mime: sql.NullString{String: a.MimeType, Valid: a.MimeType != ""},
	}
	if a.FileName != "" {
		row.name = sql.NullString{String: a.FileName, Valid: true}
		row.size = sql.NullInt64{Int64: a.Size, Valid: true}
	}
	return row
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultListLimit
	case n > MaxListLimit:
		return MaxListLimit
	default:
		return n
	}
}
