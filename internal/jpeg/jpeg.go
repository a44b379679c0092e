// Package jpeg extracts and embeds C2PA stores in JPEG files via APP11
// (JPEG XT) marker segments, including the two-pass signing that reserves
// the exact byte range the embedded manifest will occupy.
package jpeg

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/signedmedia/c2pa-go/internal/c2pa"
	"github.com/signedmedia/c2pa-go/internal/status"
)

const xmpHeader = "http://ns.adobe.com/xap/1.0/\x00"

const (
	maxSegmentLength = 65535
	segmentHeaderLen = 20
)

// Image is the C2PA-relevant decomposition of a JPEG: the image bytes with
// any C2PA and XMP segments removed, the offset where new metadata is
// inserted (after the JFIF/Exif header segments), and the extracted payloads.
type Image struct {
	Data         []byte
	InsertOffset int
	// XMP is the extracted xpacket, nil if none. On write, nil omits XMP
	// and an empty slice synthesizes a minimal packet pointing at the
	// active manifest.
	XMP []byte
	// C2PA holds the extracted store bytes, nil if none.
	C2PA []byte
}

// Read decomposes a JPEG stream. APP11 segments carrying JUMBF box data are
// grouped by box instance number and concatenated in sequence order; when a
// file carries several instance groups, the lowest-numbered one is used.
func Read(r io.Reader) (*Image, error) {
	groups := map[int]*bytes.Buffer{}
	var out bytes.Buffer
	var xmp bytes.Buffer
	headerOffset := 0
	header := true

	err := walkSegments(r, func(marker int, length int, payload []byte, rest io.Reader) error {
		write := true
		switch {
		case marker == 0xffeb && length > 17:
			header = false
			if payload[0] == 0x4a && payload[1] == 0x50 {
				write = false
				id := int(payload[2])<<8 | int(payload[3])
				boxtype := uint32(payload[12])<<24 | uint32(payload[13])<<16 | uint32(payload[14])<<8 | uint32(payload[15])
				if boxtype == 0x6a756d62 { // "jumb"
					boxlen := uint32(payload[8])<<24 | uint32(payload[9])<<16 | uint32(payload[10])<<8 | uint32(payload[11])
					skip := 8
					if groups[id] == nil {
						groups[id] = &bytes.Buffer{}
					} else {
						// boxlen and boxtype are repeated on every segment.
						skip += 8
						if boxlen == 1 {
							skip += 8
						}
					}
					if skip <= len(payload) {
						groups[id].Write(payload[skip:])
					}
				}
			}
		case marker == 0xffe1 && length > 6:
			if !bytes.HasPrefix(payload, []byte("Exif\x00\x00")) {
				header = false
				if bytes.HasPrefix(payload, []byte(xmpHeader)) {
					write = false
					xmp.Write(payload[len(xmpHeader):])
				}
			}
		case marker != 0xffe0 && marker != 0xffd8:
			header = false
		}
		if write {
			out.WriteByte(byte(marker >> 8))
			out.WriteByte(byte(marker))
			if length > 0 {
				out.WriteByte(byte(length >> 8))
				out.WriteByte(byte(length))
			}
			if payload != nil {
				out.Write(payload)
			} else if rest != nil {
				if _, err := io.Copy(&out, rest); err != nil {
					return err
				}
			}
		}
		if header {
			headerOffset = out.Len()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	img := &Image{Data: out.Bytes(), InsertOffset: headerOffset}
	if xmp.Len() > 0 {
		img.XMP = xmp.Bytes()
	}
	if len(groups) > 0 {
		ids := make([]int, 0, len(groups))
		for id := range groups {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		img.C2PA = groups[ids[0]].Bytes()
	}
	return img, nil
}

// walkSegments calls fn for each JPEG segment. Length-prefixed segments are
// read fully into payload; the SOS segment receives the remaining stream as
// rest and ends the walk.
func walkSegments(r io.Reader, fn func(marker, length int, payload []byte, rest io.Reader) error) error {
	br := newByteReader(r)
	for {
		hi, err := br.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		lo, err := br.ReadByte()
		if err != nil {
			return fmt.Errorf("jpeg: truncated marker: %w", err)
		}
		marker := int(hi)<<8 | int(lo)
		if marker == 0xffda {
			return fn(marker, -1, nil, br)
		}
		length := 0
		if marker != 0xff01 && (marker < 0xffd0 || marker > 0xffd8) {
			l1, err := br.ReadByte()
			if err != nil {
				return fmt.Errorf("jpeg: truncated segment length: %w", err)
			}
			l2, err := br.ReadByte()
			if err != nil {
				return fmt.Errorf("jpeg: truncated segment length: %w", err)
			}
			length = int(l1)<<8 | int(l2)
		}
		var payload []byte
		if length > 2 {
			payload = make([]byte, length-2)
			if _, err := io.ReadFull(br, payload); err != nil {
				return fmt.Errorf("jpeg: truncated segment 0x%04x: %w", marker, err)
			}
		}
		if err := fn(marker, length, payload, nil); err != nil {
			return err
		}
	}
}

type byteReader struct {
	io.Reader
	one [1]byte
}

func newByteReader(r io.Reader) *byteReader {
	return &byteReader{Reader: r}
}

func (b *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(b.Reader, b.one[:]); err != nil {
		return 0, err
	}
	return b.one[0], nil
}

// Write signs the store over the image and writes the result: the image up to
// the insertion offset, the store chunked into APP11 segments, the XMP
// packet, then the rest of the image.
//
// Signing is two-pass: a dummy signature over an empty asset measures the
// encoded store size, the data-hash exclusion is set to the byte range the
// segments will occupy, and the real asset is signed. Both passes must
// produce identical store sizes. On return img.C2PA holds the embedded store
// bytes.
func Write(img *Image, store *c2pa.Store, out io.Writer) ([]status.Status, error) {
	if img == nil || img.Data == nil {
		return nil, fmt.Errorf("jpeg: image data is required")
	}
	if store == nil {
		_, err := out.Write(img.Data)
		return nil, err
	}
	manifest := store.ActiveManifest()
	if manifest == nil {
		return nil, fmt.Errorf("jpeg: store has no active manifest")
	}
	if !manifest.Signature().HasSigner() {
		return nil, fmt.Errorf("jpeg: manifest has no signing identity")
	}
	var hard *c2pa.DataHashAssertion
	for _, a := range manifest.Assertions() {
		if h, ok := a.(*c2pa.DataHashAssertion); ok {
			hard = h
			break
		}
	}
	if hard == nil {
		return nil, fmt.Errorf("jpeg: active manifest has no data hash assertion")
	}
	offset := img.InsertOffset
	if offset < 0 || offset > len(img.Data) {
		return nil, fmt.Errorf("jpeg: insert offset %d out of range", offset)
	}

	xmpSegment, err := buildXMPSegment(img.XMP, store, manifest)
	if err != nil {
		return nil, err
	}

	// First pass: measure the signed store over an empty asset.
	manifest.SetInputStream(bytes.NewReader(nil))
	if _, err := manifest.Signature().Sign(); err != nil {
		return nil, err
	}
	dummy, err := store.Encode()
	if err != nil {
		return nil, err
	}
	sigLength := len(dummy)
	chunk := maxSegmentLength - segmentHeaderLen
	numSegments := (sigLength - 8 + chunk - 1) / chunk
	if err := hard.SetExclusions([]c2pa.Exclusion{{
		Start:  int64(offset),
		Length: int64(sigLength - 8 + numSegments*segmentHeaderLen),
	}}); err != nil {
		return nil, err
	}

	// Second pass: sign the asset as it will be laid out on disk, minus the
	// excluded segment range.
	manifest.SetInputStream(io.MultiReader(
		bytes.NewReader(img.Data[:offset]),
		bytes.NewReader(xmpSegment),
		bytes.NewReader(img.Data[offset:]),
	))
	statuses, err := manifest.Signature().Sign()
	if err != nil {
		return nil, err
	}
	data, err := store.Encode()
	if err != nil {
		return nil, err
	}
	if len(data) != sigLength {
		return nil, fmt.Errorf("jpeg: expected %d bytes, second signing gave us %d", sigLength, len(data))
	}

	if _, err := out.Write(img.Data[:offset]); err != nil {
		return nil, err
	}
	for i := 0; i < numSegments; i++ {
		start := 8 + i*chunk
		n := len(data) - start
		if n > chunk {
			n = chunk
		}
		seq := i + 1 // sequence numbers start at 1
		segLen := n + segmentHeaderLen - 2
		hdr := []byte{
			0xff, 0xeb,
			byte(segLen >> 8), byte(segLen),
			0x4a, 0x50,
			0, 0, // box instance number
			byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq),
		}
		if _, err := out.Write(hdr); err != nil {
			return nil, err
		}
		// The 8-byte box length+type prefix is repeated on every segment.
		if _, err := out.Write(data[:8]); err != nil {
			return nil, err
		}
		if _, err := out.Write(data[start : start+n]); err != nil {
			return nil, err
		}
	}
	if _, err := out.Write(xmpSegment); err != nil {
		return nil, err
	}
	if _, err := out.Write(img.Data[offset:]); err != nil {
		return nil, err
	}

	if len(xmpSegment) > 0 {
		img.XMP = xmpSegment
	}
	img.C2PA = data
	return statuses, nil
}

// buildXMPSegment wraps the XMP packet in an APP1 segment. A nil packet
// yields no segment; an empty one synthesizes a minimal xpacket carrying the
// manifest URL as dcterms:provenance.
func buildXMPSegment(xmp []byte, store *c2pa.Store, manifest *c2pa.Manifest) ([]byte, error) {
	if xmp == nil {
		return nil, nil
	}
	if len(xmp) == 0 {
		s := `<?xpacket begin="` + "\ufeff" + `" id="W5M0MpCehiHzreSzNTczkc9d"?>` +
			`<x:xmpmeta xmlns:x="adobe:ns:meta/">` +
			`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` +
			`<rdf:Description rdf:about="" xmlns:dcterms="http://purl.org/dc/terms/" dcterms:provenance="` +
			store.PathOf(manifest) + `"/></rdf:RDF></x:xmpmeta><?xpacket end="r"?>`
		xmp = []byte(s)
	}
	dataLen := len(xmp) + len(xmpHeader) + 2
	if dataLen > maxSegmentLength {
		return nil, fmt.Errorf("jpeg: XMP too large (%d bytes)", dataLen)
	}
	seg := make([]byte, 0, dataLen+2)
	seg = append(seg, 0xff, 0xe1, byte(dataLen>>8), byte(dataLen))
	seg = append(seg, xmpHeader...)
	seg = append(seg, xmp...)
	return seg, nil
}
