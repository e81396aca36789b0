package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/chatrpc"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
)

type fakeAPI struct {
	mu sync.Mutex

	loggedIn      bool
	lastPassword  string
	lastPlaintext bool
	loginErr      error

	sent    []*chatrpc.SendMessageRequest
	lastReq *chatrpc.ListMessagesRequest
	list    []*chatrpc.Message
	edits   map[string]string
	deleted []string
	callErr error

	stats *chatrpc.StatsResponse

	watchStarted chan struct{}
	events       []*chatrpc.Event
	closed       bool
}

func (f *fakeAPI) Login(ctx context.Context, password string, plaintext bool) error {
	f.lastPassword, f.lastPlaintext = password, plaintext
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}

func (f *fakeAPI) Logout()        { f.loggedIn = false }
func (f *fakeAPI) LoggedIn() bool { return f.loggedIn }

func (f *fakeAPI) Send(ctx context.Context, req *chatrpc.SendMessageRequest) (*chatrpc.Message, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	f.sent = append(f.sent, req)
	return &chatrpc.Message{ID: "m1", Text: req.Text}, nil
}

func (f *fakeAPI) List(ctx context.Context, req *chatrpc.ListMessagesRequest) ([]*chatrpc.Message, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	f.lastReq = req
	return f.list, nil
}

func (f *fakeAPI) Edit(ctx context.Context, id, text string) (*chatrpc.Message, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	if f.edits == nil {
		f.edits = map[string]string{}
	}
	f.edits[id] = text
	return &chatrpc.Message{ID: id, Text: text, Edited: true}, nil
}

func (f *fakeAPI) Delete(ctx context.Context, id string) error {
	if f.callErr != nil {
		return f.callErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAPI) Stats(ctx context.Context) (*chatrpc.StatsResponse, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.stats, nil
}

func (f *fakeAPI) Watch(ctx context.Context, fn func(*chatrpc.Event)) error {
	for _, e := range f.events {
		fn(e)
	}
	if f.watchStarted != nil {
		close(f.watchStarted)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeAPI) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func newTestApp(api *fakeAPI, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return newApp(cfg, api, strings.NewReader(input), &out), &out
}
