package grpc

import (
	"time"

	"github.com/dmitrijs2005/gophchat/internal/chatrpc"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
)

func toMessage(v *services.MessageView) *chatrpc.Message {
	if v == nil {
		return nil
	}
	m := &chatrpc.Message{
		ID:        v.ID,
		Text:      v.Text,
		CreatedAt: v.CreatedAt,
		Edited:    v.Edited,
		EditedAt:  v.EditedAt,
	}
	if v.Image != nil {
		m.Image = &chatrpc.Attachment{Data: v.Image.Data, MimeType: v.Image.MimeType}
	}
	if v.File != nil {
		m.File = &chatrpc.Attachment{Data: v.File.Data, MimeType: v.File.MimeType, FileName: v.File.FileName, Size: v.File.Size}
	}
	return m
}

func toUpload(a *chatrpc.Attachment) *services.Upload {
	if a == nil {
		return nil
	}
	return &services.Upload{Data: a.Data, MimeType: a.MimeType, FileName: a.FileName}
}

func toEvent(e services.MessageEvent) *chatrpc.Event {
	return &chatrpc.Event{Type: e.Type, MessageID: e.MessageID, Message: toMessage(e.Message)}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
