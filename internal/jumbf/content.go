package jumbf

import (
	"encoding/json"
	"fmt"
	"io"
)

// DataBox stores its payload as opaque bytes. It doubles as the fallback for
// unregistered box types so they survive a byte-exact round trip.
type DataBox struct {
	BaseBox
	data []byte
}

// NewDataBox builds a data box with the given type and payload.
func NewDataBox(typ string, data []byte) *DataBox {
	b := &DataBox{data: data}
	Init(b, typ)
	return b
}

// Data returns the payload bytes.
func (b *DataBox) Data() []byte { return b.data }

func (b *DataBox) ReadPayload(r *Reader, f *Factory) error {
	var err error
	b.data, err = readAll(r)
	return err
}

func (b *DataBox) WritePayload(w io.Writer) error {
	_, err := w.Write(b.data)
	return err
}

// CBORBox holds a single CBOR item ("cbor", ISO 19566-5 B.5). The bytes read
// from the wire are kept verbatim and re-emitted unchanged until the value is
// replaced or marked dirty, preserving byte-exact round trips over foreign
// encodings.
type CBORBox struct {
	BaseBox
	raw   []byte
	value any
}

// NewCBORBox builds a CBOR box around the given value.
func NewCBORBox(value any) *CBORBox {
	b := &CBORBox{value: value}
	Init(b, "cbor")
	return b
}

// Value returns the decoded CBOR item, decoding the wire bytes on first use.
// Maps decode as map[string]any.
func (b *CBORBox) Value() any {
	if b.value == nil && b.raw != nil {
		v, err := CBORUnmarshal(b.raw)
		if err == nil {
			b.value = v
		}
	}
	return b.value
}

// Map returns the value as a map, or nil.
func (b *CBORBox) Map() map[string]any {
	m, _ := b.Value().(map[string]any)
	return m
}

// SetValue replaces the CBOR item; the box re-encodes deterministically.
func (b *CBORBox) SetValue(v any) {
	b.value = v
	b.raw = nil
}

// SetRaw installs pre-encoded CBOR bytes verbatim (used for COSE structures
// whose exact serialization is produced elsewhere).
func (b *CBORBox) SetRaw(raw []byte) {
	b.raw = raw
	b.value = nil
}

// Raw returns the wire bytes if the box is unmodified since load (or SetRaw),
// else nil.
func (b *CBORBox) Raw() []byte { return b.raw }

// Dirty discards the cached wire bytes after in-place mutation of the value
// returned by Value.
func (b *CBORBox) Dirty() {
	if b.value == nil && b.raw != nil {
		b.Value()
	}
	b.raw = nil
}

func (b *CBORBox) ReadPayload(r *Reader, f *Factory) error {
	raw, err := readAll(r)
	if err != nil {
		return err
	}
	b.raw = raw
	b.value = nil
	return nil
}

func (b *CBORBox) WritePayload(w io.Writer) error {
	if b.raw != nil {
		_, err := w.Write(b.raw)
		return err
	}
	enc, err := CBORMarshal(b.value)
	if err != nil {
		return fmt.Errorf("encoding cbor box: %w", err)
	}
	_, err = w.Write(enc)
	return err
}

// JSONBox holds UTF-8 JSON text ("json", ISO 19566-5 B.4).
type JSONBox struct {
	BaseBox
	raw []byte
}

// NewJSONBox builds a JSON box around the given value.
func NewJSONBox(value any) (*JSONBox, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	b := &JSONBox{raw: raw}
	Init(b, "json")
	return b, nil
}

// NewJSONBoxRaw builds a JSON box around pre-encoded JSON text.
func NewJSONBoxRaw(raw []byte) *JSONBox {
	b := &JSONBox{raw: raw}
	Init(b, "json")
	return b
}

// Data returns the JSON text.
func (b *JSONBox) Data() []byte { return b.raw }

// Value decodes the JSON text.
func (b *JSONBox) Value() (any, error) {
	var v any
	if err := json.Unmarshal(b.raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (b *JSONBox) ReadPayload(r *Reader, f *Factory) error {
	var err error
	b.raw, err = readAll(r)
	return err
}

func (b *JSONBox) WritePayload(w io.Writer) error {
	_, err := w.Write(b.raw)
	return err
}

// CBORContainerBox is a superbox wrapping a single CBOR box (ISO 19566-5 B.5).
type CBORContainerBox struct {
	SuperBox
}

// NewCBORContainerBox builds a "jumb" box holding a description with the
// given subtype and label plus a CBOR box. A nil value becomes an empty map.
func NewCBORContainerBox(subtype, label string, value any) (*CBORContainerBox, error) {
	b := &CBORContainerBox{}
	if err := InitCBORContainer(b, subtype, label, value); err != nil {
		return nil, err
	}
	return b, nil
}

// InitCBORContainer initializes an embedder of CBORContainerBox.
func InitCBORContainer(self Box, subtype, label string, value any) error {
	if err := InitSuper(self, subtype, label); err != nil {
		return err
	}
	if value == nil {
		value = map[string]any{}
	}
	return self.Append(NewCBORBox(value))
}

// CBOR returns the contained CBOR box, or nil.
func (b *CBORContainerBox) CBOR() *CBORBox {
	if b.first == nil {
		return nil
	}
	if c, ok := b.first.Next().(*CBORBox); ok {
		return c
	}
	return nil
}

// Map returns the contained CBOR map, or nil.
func (b *CBORContainerBox) Map() map[string]any {
	if c := b.CBOR(); c != nil {
		return c.Map()
	}
	return nil
}

// JSONContainerBox is a superbox wrapping a single JSON box (ISO 19566-5 B.4).
type JSONContainerBox struct {
	SuperBox
}

// NewJSONContainerBox builds a "jumb" box holding a description with the given
// label plus a JSON box carrying raw JSON text.
func NewJSONContainerBox(label string, raw []byte) (*JSONContainerBox, error) {
	b := &JSONContainerBox{}
	if err := InitJSONContainer(b, label, raw); err != nil {
		return nil, err
	}
	return b, nil
}

// InitJSONContainer initializes an embedder of JSONContainerBox.
func InitJSONContainer(self Box, label string, raw []byte) error {
	if err := InitSuper(self, "json", label); err != nil {
		return err
	}
	if raw == nil {
		raw = []byte("{}")
	}
	return self.Append(NewJSONBoxRaw(raw))
}

// JSON returns the contained JSON box, or nil.
func (b *JSONContainerBox) JSON() *JSONBox {
	if b.first == nil {
		return nil
	}
	if j, ok := b.first.Next().(*JSONBox); ok {
		return j
	}
	return nil
}
