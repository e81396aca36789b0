// Package codec turns message payloads into their compact stored form and
// back. Text longer than a threshold and every image or file attachment is
// deflated (zlib) and wrapped in a small protobuf-encoded envelope; short
// text is stored verbatim.
//
// For any input P, decoding the encoding of P yields P byte for byte.
// A Codec holds only immutable settings and is safe for concurrent use.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
)

const (
	// DefaultThreshold is the longest text, in characters, stored uncompressed.
	DefaultThreshold = 100
	// DefaultLevel is the zlib compression level.
	DefaultLevel = zlib.DefaultCompression
	// DefaultMaxDecodedSize bounds what a single envelope may inflate to.
	DefaultMaxDecodedSize = 64 << 20
)

// ErrCorrupted wraps every failure to unwrap or inflate a stored payload.
var ErrCorrupted = errors.New("stored payload is corrupted")

// ErrInvalidText is returned by EncodeText for input that is not valid UTF-8.
var ErrInvalidText = errors.New("text is not valid UTF-8")

type Codec struct {
	threshold      int
	level          int
	maxDecodedSize int
}

type Option func(*Codec)

// WithThreshold sets the character count above which text is compressed.
func WithThreshold(n int) Option {
	return func(c *Codec) {
		if n >= 0 {
			c.threshold = n
		}
	}
}

// WithLevel sets the zlib level; values outside [HuffmanOnly, BestCompression]
// are ignored.
func WithLevel(level int) Option {
	return func(c *Codec) {
		if level >= zlib.HuffmanOnly && level <= zlib.BestCompression {
			c.level = level
		}
	}
}

// WithMaxDecodedSize caps the declared raw size accepted on decode.
func WithMaxDecodedSize(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.maxDecodedSize = n
		}
	}
}

func New(opts ...Option) *Codec {
	c := &Codec{
		threshold:      DefaultThreshold,
		level:          DefaultLevel,
		maxDecodedSize: DefaultMaxDecodedSize,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Threshold reports the configured character threshold.
func (c *Codec) Threshold() int {
	return c.threshold
}

// ShouldCompress applies the boundary rule: strictly more than threshold
// characters. Text of exactly threshold characters stays raw.
func (c *Codec) ShouldCompress(s string) bool {
	return utf8.RuneCountInString(s) > c.threshold
}

// EncodeText returns the stored form of s. Empty text is absent and yields nil.
func (c *Codec) EncodeText(s string) (Text, error) {
	if s == "" {
		return nil, nil
	}
	if !utf8.ValidString(s) {
		return nil, ErrInvalidText
	}
	if !c.ShouldCompress(s) {
		return RawText(s), nil
	}
	packed, err := c.pack([]byte(s))
	if err != nil {
		return nil, err
	}
	return PackedText(packed), nil
}

// DecodeText recovers the text from its stored form.
func (c *Codec) DecodeText(t Text) (string, error) {
	switch v := t.(type) {
	case nil:
		return "", nil
	case RawText:
		return string(v), nil
	case PackedText:
		raw, err := c.unpack(v)
		if err != nil {
			return "", err
		}
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%w: text is not valid UTF-8", ErrCorrupted)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown text representation %T", ErrCorrupted, t)
	}
}

// EncodeBinary compresses and wraps an attachment regardless of its size.
func (c *Codec) EncodeBinary(raw []byte) ([]byte, error) {
	return c.pack(raw)
}

// DecodeBinary unwraps and inflates an attachment.
func (c *Codec) DecodeBinary(stored []byte) ([]byte, error) {
	return c.unpack(stored)
}

func (c *Codec) pack(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("zlib writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}

	e := envelope{
		version:   envelopeVersion,
		algorithm: AlgorithmZlib,
		rawSize:   uint64(len(raw)),
		data:      buf.Bytes(),
	}
	return e.marshal(), nil
}

func (c *Codec) unpack(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrCorrupted)
	}

	e, err := unmarshalEnvelope(stored)
	if err != nil {
		return nil, err
	}
	if e.rawSize > uint64(c.maxDecodedSize) {
		return nil, fmt.Errorf("%w: declared size %d exceeds limit %d", ErrCorrupted, e.rawSize, c.maxDecodedSize)
	}

	zr, err := zlib.NewReader(bytes.NewReader(e.data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	defer zr.Close()

	// One byte of slack exposes streams longer than declared.
	raw, err := io.ReadAll(io.LimitReader(zr, int64(e.rawSize)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrCorrupted, err)
	}
	if uint64(len(raw)) != e.rawSize {
		return nil, fmt.Errorf("%w: inflated %d bytes, declared %d", ErrCorrupted, len(raw), e.rawSize)
	}
	return raw, nil
}
