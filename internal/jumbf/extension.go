package jumbf

import (
	"encoding/hex"
	"fmt"
	"io"
)

// extensionSuffix is the fixed 12-byte tail (ISO 14496-12 s11) that marks a
// 16-byte subtype as an alias for its first four ASCII bytes.
const extensionSuffix = "00110010800000aa00389b71"

var extensionSuffixBytes = mustHex(extensionSuffix)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// ExtensionBox is a box whose payload begins with a 16-byte subtype, called
// "uuid" in ISO 14496 and "content-type" in ISO 19566. Subtypes ending in the
// standard suffix are trimmed to their four-character alias.
type ExtensionBox struct {
	BaseBox
	subtype string
}

// NewExtensionBox builds an extension box with the given type and subtype.
// The subtype is either a four-character tag or 32 hex digits.
func NewExtensionBox(typ, subtype string) *ExtensionBox {
	b := &ExtensionBox{subtype: subtype}
	Init(b, typ)
	return b
}

// Subtype returns the four-character alias or the full 32-hex-digit subtype.
func (b *ExtensionBox) Subtype() string {
	return b.subtype
}

func (b *ExtensionBox) ReadPayload(r *Reader, f *Factory) error {
	raw, err := readFull(r, 16)
	if err != nil {
		return fmt.Errorf("reading extension subtype: %w", err)
	}
	b.subtype = hex.EncodeToString(raw)
	if b.subtype[8:] == extensionSuffix {
		b.subtype = string(raw[:4])
	}
	return nil
}

func (b *ExtensionBox) WritePayload(w io.Writer) error {
	if len(b.subtype) == 4 {
		if _, err := io.WriteString(w, b.subtype); err != nil {
			return err
		}
		_, err := w.Write(extensionSuffixBytes)
		return err
	}
	raw, err := hex.DecodeString(b.subtype)
	if err != nil || len(raw) != 16 {
		return fmt.Errorf("bad extension subtype %q", b.subtype)
	}
	_, err = w.Write(raw)
	return err
}

func (b *ExtensionBox) String() string {
	s := b.BaseBox.String()
	return s[:len(s)-1] + `,"subtype":"` + b.subtype + `"}`
}
