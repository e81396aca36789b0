package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/chatrpc"
	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/filex"
)

const (
	defaultListSize = 20
	searchWindow    = 500
	downloadsDir    = "downloads"
)

// check drops the local session when the server reports it expired.
func (a *App) check(err error) error {
	if errors.Is(err, client.ErrSessionExpired) {
		a.api.Logout()
		return fmt.Errorf("%w, please login again", err)
	}
	return err
}

func (a *App) Login(ctx context.Context) error {
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Login(ctx, string(password), a.config.PlaintextLogin); err != nil {
		return fmt.Errorf("login unsuccessful: %w", err)
	}

	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	_ = a.Unwatch(ctx)
	a.api.Logout()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Send(ctx context.Context, args []string) error {
	text := strings.Join(args, " ")
	if text == "" {
		var err error
		text, err = GetMultiline(a.reader, "Enter message", a.out)
		if err != nil {
			return err
		}
	}
	if text == "" {
		return errors.New("empty message")
	}

	m, err := a.api.Send(ctx, &chatrpc.SendMessageRequest{Text: text})
	if err != nil {
		return a.check(err)
	}
	fmt.Fprintln(a.out, "Sent", m.ID)
	return nil
}

func readAttachment(path string) (*chatrpc.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return &chatrpc.Attachment{
		Data:     data,
		MimeType: http.DetectContentType(data),
		FileName: filepath.Base(path),
	}, nil
}

func (a *App) SendFile(ctx context.Context, path string) error {
	att, err := readAttachment(path)
	if err != nil {
		return err
	}

	m, err := a.api.Send(ctx, &chatrpc.SendMessageRequest{File: att})
	if err != nil {
		return a.check(err)
	}
	fmt.Fprintln(a.out, "Sent", m.ID)
	return nil
}

func (a *App) SendImage(ctx context.Context, path string) error {
	att, err := readAttachment(path)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(att.MimeType, "image/") {
		return fmt.Errorf("%s does not look like an image (%s)", path, att.MimeType)
	}
	att.FileName = ""

	m, err := a.api.Send(ctx, &chatrpc.SendMessageRequest{Image: att})
	if err != nil {
		return a.check(err)
	}
	fmt.Fprintln(a.out, "Sent", m.ID)
	return nil
}

func (a *App) show(msgs []*chatrpc.Message) {
	a.mu.Lock()
	for _, m := range msgs {
		a.seen[m.ID] = m
	}
	a.mu.Unlock()

	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "No messages")
		return
	}
	for _, m := range msgs {
		fmt.Fprintln(a.out, formatMessage(m))
	}
}

func (a *App) List(ctx context.Context, args []string) error {
	limit := defaultListSize
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("usage: list [n], got %q", args[0])
		}
		limit = n
	}

	msgs, err := a.api.List(ctx, &chatrpc.ListMessagesRequest{Limit: int32(limit)})
	if err != nil {
		return a.check(err)
	}
	a.show(msgs)
	return nil
}

func (a *App) Search(ctx context.Context, text string) error {
	msgs, err := a.api.List(ctx, &chatrpc.ListMessagesRequest{Limit: searchWindow, Contains: text})
	if err != nil {
		return a.check(err)
	}
	a.show(msgs)
	return nil
}

func (a *App) Edit(ctx context.Context, id string) error {
	text, err := GetMultiline(a.reader, "Enter new text", a.out)
	if err != nil {
		return err
	}
	if text == "" {
		return errors.New("empty message")
	}

	m, err := a.api.Edit(ctx, id, text)
	if err != nil {
		return a.check(err)
	}
	fmt.Fprintln(a.out, formatMessage(m))
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.api.Delete(ctx, id); err != nil {
		return a.check(err)
	}

	a.mu.Lock()
	delete(a.seen, id)
	a.mu.Unlock()

	fmt.Fprintln(a.out, "Deleted", id)
	return nil
}

// Save writes the attachment of a message seen in the last list or search
// into the downloads directory. Existing files are never replaced.
func (a *App) Save(ctx context.Context, id string) error {
	a.mu.Lock()
	m := a.seen[id]
	a.mu.Unlock()
	if m == nil {
		return fmt.Errorf("message %s not listed yet, run list or search first", id)
	}

	att := m.File
	if att == nil {
		att = m.Image
	}
	if att == nil || len(att.Data) == 0 {
		return fmt.Errorf("message %s has no attachment", id)
	}

	dir, err := filex.EnsureDir(a.downloadsBase, downloadsDir)
	if err != nil {
		return err
	}

	name := filex.SafeName(att.FileName)
	if name == "" {
		name = id + extensionFor(att.MimeType)
	}

	path, err := filex.WriteNew(dir, name, att.Data, 0o600)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved", path)
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	st, err := a.api.Stats(ctx)
	if err != nil {
		return a.check(err)
	}
	fmt.Fprintln(a.out, formatStats(st))
	return nil
}

func (a *App) Watch(ctx context.Context) error {
	a.mu.Lock()
	if a.watchCancel != nil {
		a.mu.Unlock()
		fmt.Fprintln(a.out, "Already watching")
		return nil
	}
	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	a.mu.Unlock()

	go func() {
		err := a.api.Watch(wctx, func(e *chatrpc.Event) {
			printlnFn(formatEvent(e))
		})
		if err != nil {
			printlnFn("watch stopped:", a.check(err))
		}

		a.mu.Lock()
		if wctx.Err() == nil {
			a.watchCancel = nil
		}
		a.mu.Unlock()
		cancel()
	}()

	fmt.Fprintln(a.out, "Watching for new messages")
	return nil
}

func (a *App) Unwatch(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.watchCancel
	a.watchCancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}
