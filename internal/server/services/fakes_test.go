package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/codec"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// -------- in-memory repository --------

type fakeMessagesRepo struct {
	msgs     map[string]*models.Message
	usageErr error
	listErr  error
}

func newFakeMessagesRepo() *fakeMessagesRepo {
	return &fakeMessagesRepo{msgs: map[string]*models.Message{}}
}

func (f *fakeMessagesRepo) Create(ctx context.Context, m *models.Message) error {
	if _, ok := f.msgs[m.ID]; ok {
		return fmt.Errorf("duplicate id %s", m.ID)
	}
	cp := *m
	f.msgs[m.ID] = &cp
	return nil
}

func (f *fakeMessagesRepo) Get(ctx context.Context, id string) (*models.Message, error) {
	m, ok := f.msgs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessagesRepo) List(ctx context.Context, r models.Range) ([]*models.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Message
	for _, m := range f.msgs {
		if !r.Before.IsZero() && !m.CreatedAt.Before(r.Before) {
			continue
		}
		if !r.After.IsZero() && !m.CreatedAt.After(r.After) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Message) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if r.Limit > 0 && len(out) > r.Limit {
		out = out[len(out)-r.Limit:]
	}
	return out, nil
}

func (f *fakeMessagesRepo) UpdateText(ctx context.Context, id string, text codec.Text, editedAt time.Time) (*models.Message, error) {
	m, ok := f.msgs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	m.Text = text
	m.Edited = true
	m.EditedAt = &editedAt
	cp := *m
	return &cp, nil
}

func (f *fakeMessagesRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.msgs[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.msgs, id)
	return nil
}

func (f *fakeMessagesRepo) Usage(ctx context.Context) (models.Usage, error) {
	if f.usageErr != nil {
		return models.Usage{}, f.usageErr
	}
	var u models.Usage
	for _, m := range f.msgs {
		u.Messages++
		u.StoredBytes += m.StoredSize()
	}
	return u, nil
}

type fakeRepoManager struct {
	repo *fakeMessagesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Messages(db dbx.DBTX) messages.Repository     { return m.repo }

// -------- publisher --------

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []MessageEvent
}

func (p *recordingPublisher) Publish(topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, payload.(MessageEvent))
}

// -------- logger --------

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
}

func newRecordingLogger() recordingLogger {
	return recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l recordingLogger) Debug(_ context.Context, msg string, args ...any) { l.add("DEBUG", msg, args) }
func (l recordingLogger) Info(_ context.Context, msg string, args ...any)  { l.add("INFO", msg, args) }
func (l recordingLogger) Warn(_ context.Context, msg string, args ...any)  { l.add("WARN", msg, args) }
func (l recordingLogger) Error(_ context.Context, msg string, args ...any) { l.add("ERROR", msg, args) }
func (l recordingLogger) With(...any) logging.Logger                       { return l }

func (l recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range *l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func (f *fakeMessagesRepo) Walk(ctx context.Context, fn func(*models.Message) error) error {
	all, err := f.List(ctx, models.Range{})
	if err != nil {
		return err
	}
	for _, m := range all {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}
