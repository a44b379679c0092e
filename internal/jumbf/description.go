package jumbf

import (
	"fmt"
	"io"
	"unicode"
)

// Description box toggles (ISO 19566-5 A.3).
const (
	toggleRequestable = 1 << 0
	toggleLabel       = 1 << 1
	toggleID          = 1 << 2
	toggleSignature   = 1 << 3
	toggleSalt        = 1 << 4
)

// DescriptionBox is the "jumd" box heading every JUMBF superbox: subtype,
// requestable flag, optional label, 16-bit id, 32-byte signature and salt.
type DescriptionBox struct {
	ExtensionBox
	requestable bool
	label       string
	hasID       bool
	id          uint16
	signature   []byte
	salt        []byte
}

// ValidateLabel rejects labels with characters forbidden by ISO 19566-5:
// controls, the URL-structural set, surrogates, noncharacters and Unicode
// format characters.
func ValidateLabel(label string) error {
	for _, c := range label {
		if c < 0x1f || (c >= 0x7f && c <= 0x9f) ||
			c == '/' || c == ';' || c == '?' || c == '#' ||
			(c >= 0xd800 && c <= 0xdfff) || c == 0xfffe || c == 0xffff ||
			unicode.Is(unicode.Cf, c) {
			return fmt.Errorf("label has invalid character %#x", c)
		}
	}
	return nil
}

// NewDescriptionBox builds a requestable description with the given subtype
// and label. Pass id < 0 to omit the id field.
func NewDescriptionBox(subtype, label string, id int) (*DescriptionBox, error) {
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}
	b := &DescriptionBox{requestable: true, label: label}
	b.subtype = subtype
	Init(b, "jumd")
	if id >= 0 && id <= 0xffff {
		b.hasID = true
		b.id = uint16(id)
	}
	return b, nil
}

// Label returns the label, or "" if absent.
func (b *DescriptionBox) Label() string { return b.label }

// IsRequestable reports whether the box can be addressed by label: the
// requestable toggle is set and a label is present.
func (b *DescriptionBox) IsRequestable() bool {
	return b.requestable && b.label != ""
}

// ID returns the 16-bit id and whether it is present.
func (b *DescriptionBox) ID() (uint16, bool) { return b.id, b.hasID }

// Signature returns the 32-byte description signature, or nil.
func (b *DescriptionBox) Signature() []byte { return b.signature }

// Salt returns the c2sh salt bytes, or nil.
func (b *DescriptionBox) Salt() []byte { return b.salt }

// SetSalt installs salt bytes (used when hashing requires uniqueness).
func (b *DescriptionBox) SetSalt(salt []byte) { b.salt = salt }

func (b *DescriptionBox) ReadPayload(r *Reader, f *Factory) error {
	if err := b.ExtensionBox.ReadPayload(r, f); err != nil {
		return err
	}
	toggles, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("reading description toggles: %w", err)
	}
	b.requestable = toggles&toggleRequestable != 0
	b.label = ""
	if toggles&toggleLabel != 0 {
		if b.label, err = readCString(r); err != nil {
			return fmt.Errorf("reading description label: %w", err)
		}
	}
	b.hasID = toggles&toggleID != 0
	if b.hasID {
		if b.id, err = readUint16(r); err != nil {
			return fmt.Errorf("reading description id: %w", err)
		}
	}
	b.signature = nil
	if toggles&toggleSignature != 0 {
		if b.signature, err = readFull(r, 32); err != nil {
			return fmt.Errorf("reading description signature: %w", err)
		}
	}
	b.salt = nil
	if toggles&toggleSalt != 0 {
		saltlen, err := readUint32(r)
		if err != nil {
			return fmt.Errorf("reading salt length: %w", err)
		}
		salttype, err := readUint32(r)
		if err != nil {
			return fmt.Errorf("reading salt type: %w", err)
		}
		if TypeToString(salttype) != "c2sh" {
			return fmt.Errorf("salt box type %q is not c2sh", TypeToString(salttype))
		}
		if saltlen < 8 {
			return fmt.Errorf("bad salt length %d", saltlen)
		}
		if b.salt, err = readFull(r, int(saltlen)-8); err != nil {
			return fmt.Errorf("reading salt: %w", err)
		}
	}
	return nil
}

func (b *DescriptionBox) WritePayload(w io.Writer) error {
	if err := b.ExtensionBox.WritePayload(w); err != nil {
		return err
	}
	var toggles byte
	if b.requestable {
		toggles |= toggleRequestable
	}
	if b.label != "" {
		toggles |= toggleLabel
	}
	if b.hasID {
		toggles |= toggleID
	}
	if b.signature != nil {
		toggles |= toggleSignature
	}
	if b.salt != nil {
		toggles |= toggleSalt
	}
	if _, err := w.Write([]byte{toggles}); err != nil {
		return err
	}
	if b.label != "" {
		if _, err := io.WriteString(w, b.label); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	if b.hasID {
		if _, err := w.Write([]byte{byte(b.id >> 8), byte(b.id)}); err != nil {
			return err
		}
	}
	if b.signature != nil {
		if _, err := w.Write(b.signature); err != nil {
			return err
		}
	}
	if b.salt != nil {
		n := len(b.salt) + 8
		hdr := []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n), 'c', '2', 's', 'h'}
		if _, err := w.Write(hdr); err != nil {
			return err
		}
		if _, err := w.Write(b.salt); err != nil {
			return err
		}
	}
	return nil
}

func (b *DescriptionBox) String() string {
	s := b.ExtensionBox.String()
	s = s[:len(s)-1]
	if b.label != "" {
		s += fmt.Sprintf(`,"label":%q`, b.label)
	}
	if b.hasID {
		s += fmt.Sprintf(`,"id":%d`, b.id)
	}
	return s + "}"
}
