package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope wire layout, protobuf-encoded so every field is tagged and
// length-prefixed:
//
//	1 version    varint
//	2 algorithm  varint
//	3 raw_size   varint  length of the payload before compression
//	4 data       bytes   compressed payload
const (
	fieldVersion   protowire.Number = 1
	fieldAlgorithm protowire.Number = 2
	fieldRawSize   protowire.Number = 3
	fieldData      protowire.Number = 4

	envelopeVersion = 1
)

// Algorithm identifies the compression applied to the envelope payload.
type Algorithm uint64

const (
	AlgorithmZlib Algorithm = 1
)

type envelope struct {
	version   uint64
	algorithm Algorithm
	rawSize   uint64
	data      []byte
}

func (e envelope) marshal() []byte {
	b := make([]byte, 0, len(e.data)+16)
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, e.version)
	b = protowire.AppendTag(b, fieldAlgorithm, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.algorithm))
	b = protowire.AppendTag(b, fieldRawSize, protowire.VarintType)
	b = protowire.AppendVarint(b, e.rawSize)
	b = protowire.AppendTag(b, fieldData, protowire.BytesType)
	b = protowire.AppendBytes(b, e.data)
	return b
}

// unmarshalEnvelope parses b, skipping unknown fields. Every failure wraps
// ErrCorrupted.
func unmarshalEnvelope(b []byte) (envelope, error) {
	var (
		e       envelope
		hasData bool
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, fmt.Errorf("%w: tag: %v", ErrCorrupted, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			e.version, n = protowire.ConsumeVarint(b)
		case num == fieldAlgorithm && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			e.algorithm = Algorithm(v)
		case num == fieldRawSize && typ == protowire.VarintType:
			e.rawSize, n = protowire.ConsumeVarint(b)
		case num == fieldData && typ == protowire.BytesType:
			e.data, n = protowire.ConsumeBytes(b)
			hasData = true
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return e, fmt.Errorf("%w: field %d: %v", ErrCorrupted, num, protowire.ParseError(n))
		}
		b = b[n:]
	}

	switch {
	case e.version != envelopeVersion:
		return e, fmt.Errorf("%w: unsupported envelope version %d", ErrCorrupted, e.version)
	case e.algorithm != AlgorithmZlib:
		return e, fmt.Errorf("%w: unsupported algorithm %d", ErrCorrupted, e.algorithm)
	case !hasData:
		return e, fmt.Errorf("%w: missing payload", ErrCorrupted)
	}
	return e, nil
}
