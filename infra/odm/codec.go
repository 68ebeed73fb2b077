package odm

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec encodes document bodies as CBOR.
//
// Decoded integers are int64 and maps are map[string]any. Times are written
// as untagged RFC 3339 strings with nanoseconds, so they come back as strings
// that model hydration parses into time.Time fields.
type Codec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCodec returns the document body codec.
func NewCodec() (*Codec, error) {
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		ShortestFloat: cbor.ShortestFloatNone,
		BigIntConvert: cbor.BigIntConvertNone,
		Time:          cbor.TimeRFC3339Nano,
		TimeTag:       cbor.EncTagNone,
	}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("create CBOR encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		BigIntDec:      cbor.BigIntDecodeValue,
		IntDec:         cbor.IntDecConvertSigned,
		DefaultMapType: reflect.TypeOf(map[string]any{}),
		UTF8:           cbor.UTF8DecodeInvalid,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("create CBOR decoder: %w", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Encode serialises a document body.
func (c *Codec) Encode(doc map[string]any) ([]byte, error) {
	return c.enc.Marshal(doc)
}

// Decode parses a document body.
func (c *Codec) Decode(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := c.dec.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
