package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/codec"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Event types published on common.MessagesTopic.
const (
	EventCreated = "created"
	EventEdited  = "edited"
	EventDeleted = "deleted"
)

// Publisher is the fan-out primitive. Publish must not block.
type Publisher interface {
	Publish(topic string, payload any)
}

// MessageEvent is the payload published for every mutation. Message is nil
// for deletions.
type MessageEvent struct {
	Type      string
	MessageID string
	Message   *MessageView
}

// Upload is an attachment as sent by a device.
type Upload struct {
	Data     []byte
	MimeType string
	FileName string
}

// NewMessage is the input of Send. At least one part must be non-empty.
type NewMessage struct {
	Text  string
	Image *Upload
	File  *Upload
}

// Payload is a decoded attachment.
type Payload struct {
	Data     []byte
	MimeType string
	FileName string
	Size     int64
}

// MessageView is a message with every readable field decoded. A field whose
// stored bytes could not be decoded is left out.
type MessageView struct {
	ID        string
	Text      string
	Image     *Payload
	File      *Payload
	CreatedAt time.Time
	Edited    bool
	EditedAt  *time.Time
}

// ListQuery selects messages by time and, optionally, by text.
type ListQuery struct {
	Before time.Time
	After  time.Time
	Limit  int
	// Contains keeps only messages whose decoded text contains it,
	// ignoring case. Applied after the limit.
	Contains string
}

// Stats describes store usage.
type Stats struct {
	Messages    int64
	StoredBytes int64
	Quota       int64
}

// MessageOptions configures a MessageService.
type MessageOptions struct {
	MaxAttachmentSize int64
	StorageQuota      int64
}

// MessageService encodes messages on the way in and decodes them on the way
// out. Decoding failures are contained to the affected field.
type MessageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *codec.Codec
	publisher   Publisher
	opts        MessageOptions
	logger      logging.Logger
	now         func() time.Time
}

func NewMessageService(db *sql.DB, m repomanager.RepositoryManager, c *codec.Codec, p Publisher, opts MessageOptions, l logging.Logger) *MessageService {
	return &MessageService{
		db:          db,
		repomanager: m,
		codec:       c,
		publisher:   p,
		opts:        opts,
		logger:      l.With("module", "message_service"),
		now:         time.Now,
	}
}

// Send validates, encodes and stores a new message, then announces it.
func (s *MessageService) Send(ctx context.Context, in NewMessage) (*MessageView, error) {
	if in.Text == "" && isEmptyUpload(in.Image) && isEmptyUpload(in.File) {
		return nil, fmt.Errorf("%w: message is empty", common.ErrorValidation)
	}

	msg := &models.Message{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}

	var err error
	if msg.Text, err = s.codec.EncodeText(in.Text); err != nil {
		return nil, textError(err)
	}
	if msg.Image, err = s.encodeUpload(in.Image, false); err != nil {
		return nil, err
	}
	if msg.File, err = s.encodeUpload(in.File, true); err != nil {
		return nil, err
	}

	err = dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)
		if err := s.checkQuota(ctx, repo.Usage, msg.StoredSize()); err != nil {
			return err
		}
		return repo.Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	view := &MessageView{ID: msg.ID, Text: in.Text, CreatedAt: msg.CreatedAt}
	if msg.Image != nil {
		view.Image = &Payload{Data: in.Image.Data, MimeType: msg.Image.MimeType}
	}
	if msg.File != nil {
		view.File = &Payload{Data: in.File.Data, MimeType: msg.File.MimeType, FileName: msg.File.FileName, Size: msg.File.Size}
	}

	s.logger.Info(ctx, "message stored", "id", msg.ID, "stored_bytes", msg.StoredSize())
	s.publish(EventCreated, msg.ID, view)
	return view, nil
}

// Get returns one decoded message or common.ErrorNotFound.
func (s *MessageService) Get(ctx context.Context, id string) (*MessageView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	msg, err := s.repomanager.Messages(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decode(ctx, msg), nil
}

// List returns decoded messages, oldest first. A corrupted field in one
// message never affects the others.
func (s *MessageService) List(ctx context.Context, q ListQuery) ([]*MessageView, error) {
	msgs, err := s.repomanager.Messages(s.db).List(ctx, models.Range{Before: q.Before, After: q.After, Limit: q.Limit})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(q.Contains)
	out := make([]*MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := s.decode(ctx, m)
		if needle != "" && !strings.Contains(strings.ToLower(v.Text), needle) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Edit replaces the text of a message. The new text is encoded from scratch;
// attachments are immutable.
func (s *MessageService) Edit(ctx context.Context, id, text string) (*MessageView, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text is empty", common.ErrorValidation)
	}

	encoded, err := s.codec.EncodeText(text)
	if err != nil {
		return nil, textError(err)
	}

	var updated *models.Message
	err = dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)

		current, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}

		var oldSize int64
		if current.Text != nil {
			oldSize = int64(current.Text.StoredSize())
		}
		if err := s.checkQuota(ctx, repo.Usage, int64(encoded.StoredSize())-oldSize); err != nil {
			return err
		}

		updated, err = repo.UpdateText(ctx, id, encoded, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}

	view := s.decode(ctx, updated)
	s.publish(EventEdited, id, view)
	return view, nil
}

// Delete removes a message and announces it.
func (s *MessageService) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.repomanager.Messages(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.publish(EventDeleted, id, nil)
	return nil
}

// Stats reports store usage against the quota.
func (s *MessageService) Stats(ctx context.Context) (*Stats, error) {
	u, err := s.repomanager.Messages(s.db).Usage(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Messages: u.Messages, StoredBytes: u.StoredBytes, Quota: s.opts.StorageQuota}, nil
}

func textError(err error) error {
	if errors.Is(err, codec.ErrInvalidText) {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return fmt.Errorf("%w: encode text: %v", common.ErrorInternal, err)
}

func (s *MessageService) checkQuota(ctx context.Context, usage func(context.Context) (models.Usage, error), delta int64) error {
	if delta <= 0 || s.opts.StorageQuota <= 0 {
		return nil
	}
	u, err := usage(ctx)
	if err != nil {
		return err
	}
	if u.StoredBytes+delta > s.opts.StorageQuota {
		s.logger.Warn(ctx, "storage quota exceeded", "used", u.StoredBytes, "requested", delta, "quota", s.opts.StorageQuota)
		return common.ErrQuotaExceeded
	}
	return nil
}

func (s *MessageService) encodeUpload(u *Upload, isFile bool) (*models.Attachment, error) {
	if isEmptyUpload(u) {
		return nil, nil
	}
	if s.opts.MaxAttachmentSize > 0 && int64(len(u.Data)) > s.opts.MaxAttachmentSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", common.ErrPayloadTooLarge, len(u.Data), s.opts.MaxAttachmentSize)
	}

	data, err := s.codec.EncodeBinary(u.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: encode attachment: %v", common.ErrorInternal, err)
	}

	a := &models.Attachment{Data: data, MimeType: u.MimeType}
	if isFile {
		a.FileName = u.FileName
		if a.FileName == "" {
			a.FileName = "file"
		}
		a.Size = int64(len(u.Data))
	}
	return a, nil
}

// decode never fails: a field that does not decode is logged and dropped.
func (s *MessageService) decode(ctx context.Context, m *models.Message) *MessageView {
	v := &MessageView{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Edited:    m.Edited,
		EditedAt:  m.EditedAt,
	}

	if m.Text != nil {
		text, err := s.codec.DecodeText(m.Text)
		if err != nil {
			s.logCorrupted(ctx, m.ID, "text", err)
		} else {
			v.Text = text
		}
	}

	if m.Image != nil {
		data, err := s.codec.DecodeBinary(m.Image.Data)
		if err != nil {
			s.logCorrupted(ctx, m.ID, "image", err)
		} else {
			v.Image = &Payload{Data: data, MimeType: m.Image.MimeType}
		}
	}

	if m.File != nil {
		data, err := s.codec.DecodeBinary(m.File.Data)
		if err != nil {
			s.logCorrupted(ctx, m.ID, "file", err)
		} else {
			v.File = &Payload{Data: data, MimeType: m.File.MimeType, FileName: m.File.FileName, Size: m.File.Size}
		}
	}

	return v
}

func (s *MessageService) logCorrupted(ctx context.Context, id, field string, err error) {
	s.logger.Warn(ctx, "stored field could not be decoded, omitting it",
		"id", id, "field", field, "corrupted", errors.Is(err, codec.ErrCorrupted), "error", err)
}

func (s *MessageService) publish(kind, id string, v *MessageView) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(common.MessagesTopic, MessageEvent{Type: kind, MessageID: id, Message: v})
}

func isEmptyUpload(u *Upload) bool {
	return u == nil || len(u.Data) == 0
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: bad message id", common.ErrorValidation)
	}
	return nil
}
