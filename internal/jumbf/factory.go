package jumbf

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Constructor builds an empty box of a concrete type, ready for ReadPayload.
type Constructor func() Box

// Factory maps box type/subtype/label triples to constructors and drives
// parsing. Keys are dotted: "jumb", "jumb.cbor", "jumb.cbor.c2pa.hash.data".
// Lookup is longest-prefix with progressive truncation, stripping any "__N"
// deduplication suffix from label components first.
type Factory struct {
	registry   map[string]Constructor
	containers map[string]bool
	subtyped   map[string]bool
}

// NewFactory returns a factory with the core JUMBF types registered.
// C2PA-aware callers layer their registrations on top.
func NewFactory() *Factory {
	f := &Factory{
		registry:   make(map[string]Constructor),
		containers: make(map[string]bool),
		subtyped:   make(map[string]bool),
	}
	f.Register("jumb", "", "", true, func() Box { return &SuperBox{} })
	f.Register("jumd", "", "", false, func() Box { return &DescriptionBox{} })
	f.Register("uuid", "", "", false, func() Box { return &ExtensionBox{} })
	f.Register("cbor", "", "", false, func() Box { return &CBORBox{} })
	f.Register("json", "", "", false, func() Box { return &JSONBox{} })
	f.Register("bfdb", "", "", false, func() Box { return &FileDescriptionBox{} })
	f.Register("bidb", "", "", false, func() Box { return &DataBox{} })
	f.Register("jumb", "cbor", "", true, func() Box { return &CBORContainerBox{} })
	f.Register("jumb", "json", "", true, func() Box { return &JSONContainerBox{} })
	f.Register("jumb", EmbeddedFileSubtype, "", true, func() Box { return &EmbeddedFileBox{} })
	return f
}

// Register maps a type (optionally narrowed by subtype and description label)
// to a constructor. Container types parse their payload as child boxes.
func (f *Factory) Register(typ, subtype, label string, container bool, fn Constructor) {
	if len(typ) != 4 {
		panic(fmt.Sprintf("jumbf: bad box type %q", typ))
	}
	switch {
	case label != "":
		f.registry[typ+"."+subtype+"."+label] = fn
		f.subtyped[typ] = true
	case subtype != "":
		f.registry[typ+"."+subtype] = fn
		f.subtyped[typ] = true
	default:
		f.registry[typ] = fn
		if container {
			f.containers[typ] = true
		}
	}
}

// IsContainer reports whether boxes of this type hold child boxes.
func (f *Factory) IsContainer(typ string) bool {
	return f.containers[typ]
}

// IsSubtyped reports whether boxes of this type begin with an ISO extension
// subtype that must be sniffed before dispatch.
func (f *Factory) IsSubtyped(typ string) bool {
	return f.subtyped[typ]
}

// New creates a box for the given type, subtype and label by longest-prefix
// match over the registry. Unregistered types fall back to an opaque DataBox
// so their payload survives a round trip.
func (f *Factory) New(typ, subtype, label string) Box {
	minlen := len(typ) + 1
	if subtype != "" {
		minlen = len(typ) + len(subtype) + 2
	}
	key := typ
	if label != "" {
		key = typ + "." + subtype + "." + label
	} else if subtype != "" {
		key = typ + "." + subtype
	}
	for key != "" {
		// Labels deduplicated as "label__1", "label__2" match their base.
		if len(key) > minlen && key[len(key)-1] >= '0' && key[len(key)-1] <= '9' {
			trimmed := strings.TrimRight(key, "0123456789")
			if strings.HasSuffix(trimmed, "__") {
				key = trimmed[:len(trimmed)-2]
			}
		}
		if fn, ok := f.registry[key]; ok {
			return fn()
		}
		dot := strings.LastIndex(key, ".")
		if dot <= 0 {
			break
		}
		key = key[:dot]
	}
	return &DataBox{}
}

// Load reads one box from r and returns it, or (nil, nil) when the stream is
// exhausted. Trailing unparsed payload bytes are skipped and mark the box
// sparse.
func (f *Factory) Load(r *Reader) (Box, error) {
	off := r.Tell()
	first, err := r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	length := int64(first)
	for i := 0; i < 3; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("jumbf: truncated box header at %d: %w", off, err)
		}
		length = length<<8 | int64(c)
	}
	typeval, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("jumbf: truncated box type at %d: %w", off, err)
	}
	if length == 1 {
		ext, err := readUint64(r)
		if err != nil {
			return nil, fmt.Errorf("jumbf: truncated extended length at %d: %w", off, err)
		}
		length = int64(ext)
	}
	savedLimit := r.Limit()
	if length == 0 {
		r.SetLimit(-1)
	} else {
		r.SetLimit(off + length)
	}

	typ := TypeToString(typeval)
	var subtype, label string
	if f.IsSubtyped(typ) {
		subtype, label, err = f.sniff(r, typ, typeval, length)
		if err != nil {
			return nil, err
		}
	}

	box := f.New(typ, subtype, label)
	box.Base().setWire(box, typeval, length)
	if err := box.ReadPayload(r, f); err != nil {
		return nil, fmt.Errorf("jumbf: reading %q at %d: %w", typ, off, err)
	}
	if !box.Sparse() {
		if length == 0 {
			n, err := r.Skip(1 << 62)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				box.Base().markSparse()
			}
		} else if remain := r.Limit() - r.Tell(); remain > 0 {
			box.Base().markSparse()
			if _, err := r.Skip(remain); err != nil {
				return nil, err
			}
		}
	}
	r.SetLimit(savedLimit)
	return box, nil
}

// sniff decodes a subtyped box's leading extension header (for "jumb", the
// nested description box) to recover the subtype and label, then rewinds so
// the typed constructor re-reads from the start of the payload.
func (f *Factory) sniff(r *Reader, typ string, typeval uint32, length int64) (subtype, label string, err error) {
	var tmp []byte
	var desc Box
	if f.IsContainer(typ) {
		// First child is the description box; buffer exactly that box.
		childLen, err := readUint32(r)
		if err != nil {
			return "", "", fmt.Errorf("jumbf: truncated %q description: %w", typ, err)
		}
		if childLen < 8 {
			return "", "", fmt.Errorf("jumbf: bad description length %d in %q", childLen, typ)
		}
		rest, err := readFull(r, int(childLen)-4)
		if err != nil {
			return "", "", fmt.Errorf("jumbf: truncated %q description: %w", typ, err)
		}
		tmp = make([]byte, 0, childLen)
		tmp = append(tmp, byte(childLen>>24), byte(childLen>>16), byte(childLen>>8), byte(childLen))
		tmp = append(tmp, rest...)
		desc, err = f.Load(NewReader(bytes.NewReader(tmp)))
		if err != nil {
			desc = nil
		}
	} else {
		// The subtype is the first 16 payload bytes of the box itself.
		tmp, err = readAll(r)
		if err != nil {
			return "", "", err
		}
		ext := &ExtensionBox{}
		ext.Base().setWire(ext, typeval, length)
		if err := ext.ReadPayload(NewReader(bytes.NewReader(tmp)), f); err == nil {
			desc = ext
		}
	}
	r.Rewind(tmp)
	if e, ok := desc.(interface{ Subtype() string }); ok {
		subtype = e.Subtype()
		if d, ok := desc.(*DescriptionBox); ok {
			label = d.Label()
		}
	}
	return subtype, label, nil
}
