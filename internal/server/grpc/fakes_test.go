package grpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
)

type fakeAuth struct {
	pk      *services.PublicKey
	pkErr   error
	session *services.Session
	authErr error

	mu   sync.Mutex
	last services.Credential
}

func (f *fakeAuth) GetPublicKey(ctx context.Context) (*services.PublicKey, error) {
	return f.pk, f.pkErr
}

func (f *fakeAuth) Authenticate(ctx context.Context, cred services.Credential) (*services.Session, error) {
	f.mu.Lock()
	f.last = cred
	f.mu.Unlock()
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.session, nil
}

type fakeMessages struct {
	mu      sync.Mutex
	views   map[string]*services.MessageView
	order   []string
	lastQ   services.ListQuery
	sendErr error
	pub     func(services.MessageEvent)
	now     time.Time
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{views: map[string]*services.MessageView{}, now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeMessages) Send(ctx context.Context, in services.NewMessage) (*services.MessageView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	id := fmt.Sprintf("00000000-0000-0000-0000-%012d", len(f.order)+1)
	v := &services.MessageView{ID: id, Text: in.Text, CreatedAt: f.now}
	if in.Image != nil {
		v.Image = &services.Payload{Data: in.Image.Data, MimeType: in.Image.MimeType}
	}
	if in.File != nil {
		v.File = &services.Payload{Data: in.File.Data, MimeType: in.File.MimeType, FileName: in.File.FileName, Size: int64(len(in.File.Data))}
	}
	f.views[id] = v
	f.order = append(f.order, id)
	if f.pub != nil {
		f.pub(services.MessageEvent{Type: services.EventCreated, MessageID: id, Message: v})
	}
	return v, nil
}

func (f *fakeMessages) List(ctx context.Context, q services.ListQuery) ([]*services.MessageView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQ = q
	out := make([]*services.MessageView, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.views[id])
	}
	return out, nil
}

func (f *fakeMessages) Edit(ctx context.Context, id, text string) (*services.MessageView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.views[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	at := f.now.Add(time.Minute)
	v.Text, v.Edited, v.EditedAt = text, true, &at
	return v, nil
}

func (f *fakeMessages) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.views[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.views, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeMessages) Stats(ctx context.Context) (*services.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &services.Stats{Messages: int64(len(f.order)), StoredBytes: 42, Quota: 1000}, nil
}
