package c2pa

import (
	"fmt"
	"io"

	"github.com/signedmedia/c2pa-go/internal/jumbf"
)

// ContainerBox wraps a C2PA store inside a "uuid" box for storage in a BMFF
// file: version, a purpose string, an offset for "manifest" purpose, the
// store box, and optional zero padding which is preserved on rewrite.
type ContainerBox struct {
	jumbf.ExtensionBox
	version   uint32
	purpose   string
	offset    uint64
	padlength int
}

// NewContainerBox wraps a store for BMFF embedding with purpose "manifest".
func NewContainerBox(store *Store) (*ContainerBox, error) {
	b := &ContainerBox{purpose: "manifest"}
	jumbf.Init(b, "uuid")
	if err := b.Append(store); err != nil {
		return nil, err
	}
	return b, nil
}

// Purpose returns the container purpose, "manifest" by default.
func (b *ContainerBox) Purpose() string {
	if b.purpose == "" {
		return "manifest"
	}
	return b.purpose
}

// Offset returns, for "manifest" containers, the absolute file offset of the
// first auxiliary "merkle" container, or 0.
func (b *ContainerBox) Offset() uint64 { return b.offset }

// Store returns the wrapped store, or nil.
func (b *ContainerBox) Store() *Store {
	s, _ := b.First().(*Store)
	return s
}

func (b *ContainerBox) ReadPayload(r *jumbf.Reader, f *jumbf.Factory) error {
	if err := b.ExtensionBox.ReadPayload(r, f); err != nil {
		return err
	}
	version, err := readUint32From(r)
	if err != nil {
		return err
	}
	b.version = version
	purpose, err := readCStringFrom(r)
	if err != nil {
		return fmt.Errorf("reading container purpose: %w", err)
	}
	b.purpose = purpose
	if purpose == "manifest" {
		if b.offset, err = readUint64From(r); err != nil {
			return fmt.Errorf("reading container offset: %w", err)
		}
	}
	child, err := f.Load(r)
	if err != nil {
		return err
	}
	if child != nil {
		if err := b.Append(child); err != nil {
			return err
		}
	}
	b.padlength = 0
	var one [1]byte
	for {
		n, err := r.Read(one[:])
		if n > 0 {
			b.padlength++
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func (b *ContainerBox) WritePayload(w io.Writer) error {
	if err := b.ExtensionBox.WritePayload(w); err != nil {
		return err
	}
	v := b.version
	if _, err := w.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, b.Purpose()); err != nil {
		return err
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	if b.Purpose() == "manifest" {
		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(b.offset >> (56 - 8*i))
		}
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	if child := b.First(); child != nil {
		enc, err := child.Encode()
		if err != nil {
			return err
		}
		if _, err := w.Write(enc); err != nil {
			return err
		}
	}
	if b.padlength > 0 {
		if _, err := w.Write(make([]byte, b.padlength)); err != nil {
			return err
		}
	}
	return nil
}

func readUint32From(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func readUint64From(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

func readCStringFrom(r io.Reader) (string, error) {
	var out []byte
	var one [1]byte
	for {
		if _, err := io.ReadFull(r, one[:]); err != nil {
			return "", err
		}
		if one[0] == 0 {
			return string(out), nil
		}
		out = append(out, one[0])
	}
}

func (b *ContainerBox) String() string {
	s := b.ExtensionBox.String()
	s = s[:len(s)-1] + fmt.Sprintf(`,"purpose":%q`, b.Purpose())
	if b.version > 0 {
		s += fmt.Sprintf(`,"version":%d`, b.version)
	}
	if b.offset > 0 {
		s += fmt.Sprintf(`,"offset":%d`, b.offset)
	}
	if b.padlength > 0 {
		s += fmt.Sprintf(`,"padding":%d`, b.padlength)
	}
	return s + "}"
}
