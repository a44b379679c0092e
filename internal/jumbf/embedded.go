package jumbf

import (
	"fmt"
	"io"
)

// EmbeddedFileSubtype identifies the embedded-file superbox (ISO 19566-5
// AMD-1): a description, a "bfdb" file description and a "bidb" data box.
const EmbeddedFileSubtype = "40cb0c32bb8a489da70b2ad6f47f4369"

// FileDescriptionBox is the "bfdb" box: a toggle byte, a NUL-terminated media
// type and an optional NUL-terminated file name. Toggle bit 0 marks the file
// name present, bit 1 marks the following bidb as an external URL.
type FileDescriptionBox struct {
	BaseBox
	mediaType   string
	fileName    string
	hasFileName bool
	external    bool
}

// NewFileDescriptionBox builds a bfdb box. Pass fileName "" to omit it.
func NewFileDescriptionBox(mediaType, fileName string, external bool) *FileDescriptionBox {
	b := &FileDescriptionBox{
		mediaType:   mediaType,
		fileName:    fileName,
		hasFileName: fileName != "",
		external:    external,
	}
	Init(b, "bfdb")
	return b
}

// MediaType returns the embedded file's media type.
func (b *FileDescriptionBox) MediaType() string { return b.mediaType }

// FileName returns the embedded file's name, or "".
func (b *FileDescriptionBox) FileName() string { return b.fileName }

// IsExternal reports whether the sibling bidb holds a URL rather than data.
func (b *FileDescriptionBox) IsExternal() bool { return b.external }

func (b *FileDescriptionBox) ReadPayload(r *Reader, f *Factory) error {
	toggles, err := r.ReadByte()
	if err != nil {
		return err
	}
	if b.mediaType, err = readCString(r); err != nil {
		return fmt.Errorf("reading media type: %w", err)
	}
	b.hasFileName = toggles&1 != 0
	b.fileName = ""
	if b.hasFileName {
		if b.fileName, err = readCString(r); err != nil {
			return fmt.Errorf("reading file name: %w", err)
		}
	}
	b.external = toggles&2 != 0
	return nil
}

func (b *FileDescriptionBox) WritePayload(w io.Writer) error {
	var toggles byte
	if b.hasFileName {
		toggles |= 1
	}
	if b.external {
		toggles |= 2
	}
	if _, err := w.Write([]byte{toggles}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, b.mediaType); err != nil {
		return err
	}
	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	if b.hasFileName {
		if _, err := io.WriteString(w, b.fileName); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
	}
	return nil
}

func (b *FileDescriptionBox) String() string {
	s := b.BaseBox.String()
	s = s[:len(s)-1] + fmt.Sprintf(`,"media_type":%q`, b.mediaType)
	if b.hasFileName {
		s += fmt.Sprintf(`,"fileName":%q`, b.fileName)
	}
	if b.external {
		s += `,"external":true`
	}
	return s + "}"
}

// EmbeddedFileBox is the superbox pairing a bfdb with a bidb, carrying an
// embedded file (or a reference to an external one).
type EmbeddedFileBox struct {
	SuperBox
}

// NewEmbeddedFileBox builds an embedded-file superbox holding data inline.
func NewEmbeddedFileBox(label, mediaType, fileName string, data []byte) (*EmbeddedFileBox, error) {
	b := &EmbeddedFileBox{}
	if err := InitEmbeddedFile(b, label, mediaType, fileName, data); err != nil {
		return nil, err
	}
	return b, nil
}

// InitEmbeddedFile initializes an embedder of EmbeddedFileBox.
func InitEmbeddedFile(self Box, label, mediaType, fileName string, data []byte) error {
	if err := InitSuper(self, EmbeddedFileSubtype, label); err != nil {
		return err
	}
	if err := self.Append(NewFileDescriptionBox(mediaType, fileName, false)); err != nil {
		return err
	}
	return self.Append(NewDataBox("bidb", data))
}

func (b *EmbeddedFileBox) fileDescription() *FileDescriptionBox {
	if b.first == nil {
		return nil
	}
	if fd, ok := b.first.Next().(*FileDescriptionBox); ok {
		return fd
	}
	return nil
}

// MediaType returns the embedded file's media type, or "".
func (b *EmbeddedFileBox) MediaType() string {
	if fd := b.fileDescription(); fd != nil {
		return fd.MediaType()
	}
	return ""
}

// FileName returns the embedded file's name, or "".
func (b *EmbeddedFileBox) FileName() string {
	if fd := b.fileDescription(); fd != nil {
		return fd.FileName()
	}
	return ""
}

// FileURL returns the external URL if the file is an external reference.
func (b *EmbeddedFileBox) FileURL() string {
	fd := b.fileDescription()
	if fd == nil || !fd.IsExternal() {
		return ""
	}
	db, ok := fd.Next().(*DataBox)
	if !ok {
		return ""
	}
	data := db.Data()
	if n := len(data); n > 0 && data[n-1] == 0 {
		data = data[:n-1]
	}
	return string(data)
}

// Data returns the embedded file bytes, or nil for external references.
func (b *EmbeddedFileBox) Data() []byte {
	fd := b.fileDescription()
	if fd == nil || fd.IsExternal() {
		return nil
	}
	if db, ok := fd.Next().(*DataBox); ok {
		return db.Data()
	}
	return nil
}
