// Package jumbf implements the ISO BMFF / JUMBF (ISO 19566-5) nested box
// container format used by C2PA manifests: a generic length-prefixed box
// reader/writer with extension subtypes, label-qualified JUMBF superboxes and
// byte-exact round-tripping. Signatures are computed over encoded box bytes,
// so an unmodified parse must re-encode to exactly its source bytes.
package jumbf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSparse is returned when encoding a box whose payload was not fully parsed
// on load. Sparse boxes cannot be re-encoded.
var ErrSparse = errors.New("jumbf: sparse box cannot be encoded")

// Box is one node of a box tree. Concrete box types embed BaseBox and override
// ReadPayload/WritePayload for their wire format; container boxes inherit the
// child-walking defaults.
type Box interface {
	// Type returns the four-character box type, e.g. "jumb".
	Type() string
	// Length returns the encoded length read from the wire, or 0 for boxes
	// built in memory.
	Length() int64
	// Sparse reports whether payload bytes were skipped on load.
	Sparse() bool

	Parent() Box
	Next() Box
	First() Box

	// Append adds child to the end of this box's child list. The child must
	// not already be part of a tree.
	Append(child Box) error
	// Remove severs this box from its parent and sibling chain.
	Remove()
	// InsertBefore inserts this box into other's parent immediately before
	// other. This box must be unparented.
	InsertBefore(other Box) error

	// Encode returns the full wire encoding of this box (length, type,
	// payload). Fails with ErrSparse anywhere in the subtree.
	Encode() ([]byte, error)

	// ReadPayload parses the box payload from r, which is limited to this
	// box's extent. The length and type have already been consumed.
	ReadPayload(r *Reader, f *Factory) error
	// WritePayload writes the box payload (everything after length+type).
	WritePayload(w io.Writer) error

	// Base exposes the embedded BaseBox for tree surgery by the codec.
	Base() *BaseBox

	fmt.Stringer
}

// BaseBox carries the tree links and wire metadata shared by every box. The
// self reference is installed by Init so promoted methods can reach the
// concrete type's overrides.
type BaseBox struct {
	self   Box
	parent Box
	next   Box
	first  Box
	typ    uint32
	length int64
	sparse bool
}

// Init installs the concrete box and its four-character type. Every box must
// be initialized before use; the factory does this for loaded boxes.
func Init(self Box, typ string) {
	if len(typ) != 4 {
		panic(fmt.Sprintf("jumbf: bad box type %q", typ))
	}
	b := self.Base()
	b.self = self
	b.typ = StringToType(typ)
}

func (b *BaseBox) setWire(self Box, typ uint32, length int64) {
	b.self = self
	b.typ = typ
	b.length = length
}

// Base returns the receiver; gives embedders the Box interface requirement.
func (b *BaseBox) Base() *BaseBox { return b }

// Type returns the four-character box type.
func (b *BaseBox) Type() string { return TypeToString(b.typ) }

// Length returns the length read from the wire, or 0.
func (b *BaseBox) Length() int64 { return b.length }

// Sparse reports whether trailing payload bytes were skipped on load.
func (b *BaseBox) Sparse() bool { return b.sparse }

func (b *BaseBox) markSparse() { b.sparse = true }

// Parent returns the containing box, or nil at the root.
func (b *BaseBox) Parent() Box { return b.parent }

// Next returns the next sibling, or nil.
func (b *BaseBox) Next() Box { return b.next }

// First returns the first child, or nil.
func (b *BaseBox) First() Box { return b.first }

// Append adds child to the end of the child list.
func (b *BaseBox) Append(child Box) error {
	cb := child.Base()
	if cb.parent != nil {
		return fmt.Errorf("jumbf: box %q already has a parent", child.Type())
	}
	if b.first == nil {
		b.first = child
	} else {
		last := b.first
		for last.Base().next != nil {
			last = last.Base().next
		}
		last.Base().next = child
	}
	cb.parent = b.self
	return nil
}

// Remove severs this box from its parent.
func (b *BaseBox) Remove() {
	if b.parent == nil {
		return
	}
	pb := b.parent.Base()
	if pb.first == b.self {
		pb.first = b.next
	} else {
		prev := pb.first
		for prev != nil && prev.Base().next != b.self {
			prev = prev.Base().next
		}
		if prev != nil {
			prev.Base().next = b.next
		}
	}
	b.parent = nil
	b.next = nil
}

// InsertBefore inserts this box into other's parent immediately before other.
func (b *BaseBox) InsertBefore(other Box) error {
	if b.parent != nil {
		return fmt.Errorf("jumbf: box %q already has a parent", b.self.Type())
	}
	if other == nil || other.Parent() == nil {
		return fmt.Errorf("jumbf: insertion point has no parent")
	}
	parent := other.Parent()
	pb := parent.Base()
	if pb.first == other {
		pb.first = b.self
	} else {
		prev := pb.first
		for prev.Base().next != other {
			prev = prev.Base().next
		}
		prev.Base().next = b.self
	}
	b.parent = parent
	b.next = other
	return nil
}

// ReadPayload's default parses children when the factory marks the type as a
// container and otherwise consumes nothing, leaving trailing bytes to be
// skipped (and the box marked sparse) by the loader.
func (b *BaseBox) ReadPayload(r *Reader, f *Factory) error {
	if !f.IsContainer(b.self.Type()) {
		return nil
	}
	for {
		child, err := f.Load(r)
		if err != nil {
			return err
		}
		if child == nil {
			return nil
		}
		if err := b.Append(child); err != nil {
			return err
		}
	}
}

// WritePayload's default emits each child in order.
func (b *BaseBox) WritePayload(w io.Writer) error {
	if b.sparse {
		return ErrSparse
	}
	for child := b.first; child != nil; child = child.Base().next {
		enc, err := child.Encode()
		if err != nil {
			return err
		}
		if _, err := w.Write(enc); err != nil {
			return err
		}
	}
	return nil
}

// Encode returns the wire encoding: 4-byte length, 4-byte type, payload.
// Extended lengths are read but never written.
func (b *BaseBox) Encode() ([]byte, error) {
	if b.sparse {
		return nil, fmt.Errorf("%w: %s", ErrSparse, b.self.String())
	}
	var payload bytes.Buffer
	if err := b.self.WritePayload(&payload); err != nil {
		return nil, err
	}
	n := payload.Len() + 8
	out := make([]byte, 0, n)
	out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	out = append(out, byte(b.typ>>24), byte(b.typ>>16), byte(b.typ>>8), byte(b.typ))
	out = append(out, payload.Bytes()...)
	return out, nil
}

func (b *BaseBox) String() string {
	var sb strings.Builder
	sb.WriteString(`{"type":"`)
	sb.WriteString(b.Type())
	sb.WriteString(`"`)
	if b.sparse {
		sb.WriteString(`,"sparse":true`)
	}
	if b.length > 0 {
		fmt.Fprintf(&sb, `,"size":%d`, b.length)
	}
	sb.WriteString("}")
	return sb.String()
}

// StringToType packs a four-character tag into its big-endian numeric form.
func StringToType(s string) uint32 {
	var v uint32
	for i := 0; i < 4 && i < len(s); i++ {
		v |= uint32(s[i]&0xff) << (24 - 8*i)
	}
	return v
}

// TypeToString unpacks a numeric box type to its four-character tag.
func TypeToString(t uint32) string {
	return string([]byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)})
}

// Duplicate deep-copies a box by encoding and re-parsing it with the factory,
// so the copy gets the same concrete types as a fresh load.
func Duplicate(b Box, f *Factory) (Box, error) {
	enc, err := b.Encode()
	if err != nil {
		return nil, err
	}
	dup, err := f.Load(NewReader(bytes.NewReader(enc)))
	if err != nil {
		return nil, err
	}
	if dup == nil {
		return nil, fmt.Errorf("jumbf: duplicate of %q parsed to nothing", b.Type())
	}
	return dup, nil
}

// Dump appends an indented rendering of the box tree to sb.
func Dump(b Box, prefix string, sb *strings.Builder) {
	sb.WriteString(prefix)
	sb.WriteString(b.String())
	sb.WriteString("\n")
	for child := b.First(); child != nil; child = child.Next() {
		Dump(child, prefix+" ", sb)
	}
}
