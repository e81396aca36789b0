// Package chatrpc defines the gophchat gRPC contract (chat.proto): request
// and response types, the service descriptor and a client. Messages are
// protobuf-encoded by the codec registered under CodecName.
package chatrpc

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

type GetPublicKeyRequest struct{}

func (*GetPublicKeyRequest) marshalWire() []byte { return nil }
func (*GetPublicKeyRequest) unmarshalWire(b []byte) error { return noFields(b) }

type GetPublicKeyResponse struct {
	PublicKeyPEM string
	Fingerprint  string
}

func (r *GetPublicKeyResponse) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, r.PublicKeyPEM)
	b = appendString(b, 2, r.Fingerprint)
	return b
}

func (r *GetPublicKeyResponse) unmarshalWire(b []byte) error {
	*r = GetPublicKeyResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &r.PublicKeyPEM)
		case 2:
			return consumeString(typ, b, &r.Fingerprint)
		}
		return 0, nil
	})
}

// LoginRequest carries exactly one of EncryptedCredential (base64
// RSA-OAEP ciphertext) or Credential (plaintext, if the server allows it).
type LoginRequest struct {
	EncryptedCredential string
	Credential          string
}

func (r *LoginRequest) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, r.EncryptedCredential)
	b = appendString(b, 2, r.Credential)
	return b
}

func (r *LoginRequest) unmarshalWire(b []byte) error {
	*r = LoginRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &r.EncryptedCredential)
		case 2:
			return consumeString(typ, b, &r.Credential)
		}
		return 0, nil
	})
}

type LoginResponse struct {
	Token      string
	TTLSeconds int64
	ExpiresAt  time.Time
}

func (r *LoginResponse) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, r.Token)
	b = appendInt64(b, 2, r.TTLSeconds)
	b = appendTime(b, 3, r.ExpiresAt)
	return b
}

func (r *LoginResponse) unmarshalWire(b []byte) error {
	*r = LoginResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &r.Token)
		case 2:
			return consumeInt64(typ, b, &r.TTLSeconds)
		case 3:
			return consumeTime(typ, b, &r.ExpiresAt)
		}
		return 0, nil
	})
}

type Attachment struct {
	Data     []byte
	MimeType string
	FileName string
	Size     int64
}

func (a *Attachment) marshalWire() []byte {
	b := make([]byte, 0, len(a.Data)+64)
	b = appendBytes(b, 1, a.Data)
	b = appendString(b, 2, a.MimeType)
	b = appendString(b, 3, a.FileName)
	b = appendInt64(b, 4, a.Size)
	return b
}

func (a *Attachment) unmarshalWire(b []byte) error {
	*a = Attachment{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeBytes(typ, b, &a.Data)
		case 2:
			return consumeString(typ, b, &a.MimeType)
		case 3:
			return consumeString(typ, b, &a.FileName)
		case 4:
			return consumeInt64(typ, b, &a.Size)
		}
		return 0, nil
	})
}

type Message struct {
	ID        string
	Text      string
	Image     *Attachment
	File      *Attachment
	CreatedAt time.Time
	Edited    bool
	EditedAt  *time.Time
}

func (m *Message) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.ID)
	b = appendString(b, 2, m.Text)
	b = appendMessage(b, 3, m.Image)
	b = appendMessage(b, 4, m.File)
	b = appendTime(b, 5, m.CreatedAt)
	b = appendBool(b, 6, m.Edited)
	b = appendTimePtr(b, 7, m.EditedAt)
	return b
}

func (m *Message) unmarshalWire(b []byte) error {
	*m = Message{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.ID)
		case 2:
			return consumeString(typ, b, &m.Text)
		case 3:
			return consumeMessage(typ, b, &m.Image)
		case 4:
			return consumeMessage(typ, b, &m.File)
		case 5:
			return consumeTime(typ, b, &m.CreatedAt)
		case 6:
			return consumeBool(typ, b, &m.Edited)
		case 7:
			return consumeTimePtr(typ, b, &m.EditedAt)
		}
		return 0, nil
	})
}

type SendMessageRequest struct {
	Text  string
	Image *Attachment
	File  *Attachment
}

func (r *SendMessageRequest) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, r.Text)
	b = appendMessage(b, 2, r.Image)
	b = appendMessage(b, 3, r.File)
	return b
}

func (r *SendMessageRequest) unmarshalWire(b []byte) error {
	*r = SendMessageRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &r.Text)
		case 2:
			return consumeMessage(typ, b, &r.Image)
		case 3:
			return consumeMessage(typ, b, &r.File)
		}
		return 0, nil
	})
}

type SendMessageResponse struct {
	Message *Message
}

func (r *SendMessageResponse) marshalWire() []byte {
	return appendMessage(nil, 1, r.Message)
}

func (r *SendMessageResponse) unmarshalWire(b []byte) error {
	*r = SendMessageResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeMessage(typ, b, &r.Message)
		}
		return 0, nil
	})
}

type ListMessagesRequest struct {
	Before   *time.Time
	After    *time.Time
	Limit    int32
	Contains string
}

func (r *ListMessagesRequest) marshalWire() []byte {
	var b []byte
	b = appendTimePtr(b, 1, r.Before)
	b = appendTimePtr(b, 2, r.After)
	b = appendInt64(b, 3, int64(r.Limit))
	b = appendString(b, 4, r.Contains)
	return b
}

func (r *ListMessagesRequest) unmarshalWire(b []byte) error {
	*r = ListMessagesRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeTimePtr(typ, b, &r.Before)
		case 2:
			return consumeTimePtr(typ, b, &r.After)
		case 3:
			return consumeInt32(typ, b, &r.Limit)
		case 4:
			return consumeString(typ, b, &r.Contains)
		}
		return 0, nil
	})
}

type ListMessagesResponse struct {
	Messages []*Message
}

func (r *ListMessagesResponse) marshalWire() []byte {
	var b []byte
	for _, m := range r.Messages {
		b = appendMessage(b, 1, m)
	}
	return b
}

func (r *ListMessagesResponse) unmarshalWire(b []byte) error {
	*r = ListMessagesResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		var m *Message
		n, err := consumeMessage(typ, b, &m)
		if m != nil {
			r.Messages = append(r.Messages, m)
		}
		return n, err
	})
}

type EditMessageRequest struct {
	ID   string
	Text string
}

func (r *EditMessageRequest) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, r.ID)
	b = appendString(b, 2, r.Text)
	return b
}

func (r *EditMessageRequest) unmarshalWire(b []byte) error {
	*r = EditMessageRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &r.ID)
		case 2:
			return consumeString(typ, b, &r.Text)
		}
		return 0, nil
	})
}

type EditMessageResponse struct {
	Message *Message
}

func (r *EditMessageResponse) marshalWire() []byte {
	return appendMessage(nil, 1, r.Message)
}

func (r *EditMessageResponse) unmarshalWire(b []byte) error {
	*r = EditMessageResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeMessage(typ, b, &r.Message)
		}
		return 0, nil
	})
}

type DeleteMessageRequest struct {
	ID string
}

func (r *DeleteMessageRequest) marshalWire() []byte {
	return appendString(nil, 1, r.ID)
}

func (r *DeleteMessageRequest) unmarshalWire(b []byte) error {
	*r = DeleteMessageRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeString(typ, b, &r.ID)
		}
		return 0, nil
	})
}

type DeleteMessageResponse struct{}

func (*DeleteMessageResponse) marshalWire() []byte { return nil }
func (*DeleteMessageResponse) unmarshalWire(b []byte) error { return noFields(b) }

type StatsRequest struct{}

func (*StatsRequest) marshalWire() []byte { return nil }
func (*StatsRequest) unmarshalWire(b []byte) error { return noFields(b) }

type StatsResponse struct {
	Messages    int64
	StoredBytes int64
	Quota       int64
}

func (r *StatsResponse) marshalWire() []byte {
	var b []byte
	b = appendInt64(b, 1, r.Messages)
	b = appendInt64(b, 2, r.StoredBytes)
	b = appendInt64(b, 3, r.Quota)
	return b
}

func (r *StatsResponse) unmarshalWire(b []byte) error {
	*r = StatsResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64(typ, b, &r.Messages)
		case 2:
			return consumeInt64(typ, b, &r.StoredBytes)
		case 3:
			return consumeInt64(typ, b, &r.Quota)
		}
		return 0, nil
	})
}

type SubscribeRequest struct{}

func (*SubscribeRequest) marshalWire() []byte { return nil }
func (*SubscribeRequest) unmarshalWire(b []byte) error { return noFields(b) }

// Event is streamed to subscribers on every mutation. Message is absent
// for deletions.
type Event struct {
	Type      string
	MessageID string
	Message   *Message
}

func (e *Event) marshalWire() []byte {
	var b []byte
	b = appendString(b, 1, e.Type)
	b = appendString(b, 2, e.MessageID)
	b = appendMessage(b, 3, e.Message)
	return b
}

func (e *Event) unmarshalWire(b []byte) error {
	*e = Event{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &e.Type)
		case 2:
			return consumeString(typ, b, &e.MessageID)
		case 3:
			return consumeMessage(typ, b, &e.Message)
		}
		return 0, nil
	})
}
