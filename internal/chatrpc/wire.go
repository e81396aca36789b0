package chatrpc

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// wireMessage is implemented by every request, response and event type.
type wireMessage interface {
	marshalWire() []byte
	unmarshalWire(b []byte) error
}

// Encoders omit zero values, as proto3 does.

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

// appendTime writes t as a google.protobuf.Timestamp.
func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	var ts []byte
	ts = appendInt64(ts, 1, t.Unix())
	ts = appendInt64(ts, 2, int64(t.Nanosecond()))
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, ts)
}

func appendTimePtr(b []byte, num protowire.Number, t *time.Time) []byte {
	if t == nil {
		return b
	}
	return appendTime(b, num, *t)
}

func appendMessage[T any, PT interface {
	*T
	wireMessage
}](b []byte, num protowire.Number, m PT) []byte {
	if m == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.marshalWire())
}

// walkFields calls fn for every field in b. fn returns how many bytes of the
// value it consumed; 0 skips the field, which is how unknown fields and
// unexpected wire types are ignored.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}
	return n, nil
}

// consumeBytes copies the value; b belongs to the transport.
func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		*dst = append([]byte(nil), v...)
	}
	return n, nil
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) (int, error) {
	if typ != protowire.VarintType {
		return 0, nil
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int64(v)
	}
	return n, nil
}

func consumeInt32(typ protowire.Type, b []byte, dst *int32) (int, error) {
	var v int64
	n, err := consumeInt64(typ, b, &v)
	if n > 0 {
		*dst = int32(v)
	}
	return n, err
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) (int, error) {
	if typ != protowire.VarintType {
		return 0, nil
	}
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = protowire.DecodeBool(v)
	}
	return n, nil
}

func consumeTime(typ protowire.Type, b []byte, dst *time.Time) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}

	var sec, nsec int64
	err := walkFields(v, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64(typ, b, &sec)
		case 2:
			return consumeInt64(typ, b, &nsec)
		}
		return 0, nil
	})
	if err != nil {
		return 0, fmt.Errorf("timestamp: %w", err)
	}
	if nsec < 0 || nsec >= int64(time.Second) {
		return 0, fmt.Errorf("timestamp: nanos %d out of range", nsec)
	}

	*dst = time.Unix(sec, nsec).UTC()
	return n, nil
}

func consumeTimePtr(typ protowire.Type, b []byte, dst **time.Time) (int, error) {
	var t time.Time
	n, err := consumeTime(typ, b, &t)
	if n > 0 && err == nil {
		*dst = &t
	}
	return n, err
}

func consumeMessage[T any, PT interface {
	*T
	wireMessage
}](typ protowire.Type, b []byte, dst *PT) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}
	m := PT(new(T))
	if err := m.unmarshalWire(v); err != nil {
		return 0, err
	}
	*dst = m
	return n, nil
}

// noFields serves the empty request and response types.
func noFields(b []byte) error {
	return walkFields(b, func(protowire.Number, protowire.Type, []byte) (int, error) {
		return 0, nil
	})
}
