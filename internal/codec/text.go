package codec

// Text is the stored form of a message's text field. It is either RawText or
// PackedText; nil means the message has no text. Read sites switch over both
// variants:
//
//	switch t := stored.(type) {
//	case codec.RawText:
//	case codec.PackedText:
//	case nil:
//	}
type Text interface {
	// StoredSize is the number of bytes the value occupies in the store.
	StoredSize() int
	isText()
}

// RawText is text persisted verbatim. Short messages and records written
// before compression existed take this form.
type RawText string

// PackedText is text deflated and wrapped in an envelope.
type PackedText []byte

func (t RawText) StoredSize() int    { return len(t) }
func (t PackedText) StoredSize() int { return len(t) }

func (RawText) isText()    {}
func (PackedText) isText() {}
