package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/signedmedia/c2pa-go/internal/c2pa"
	"github.com/signedmedia/c2pa-go/internal/jpeg"
	"github.com/signedmedia/c2pa-go/internal/status"
)

// loadAsset reads a file and extracts its store: a JPEG is decomposed, a raw
// ".c2pa" sidecar parses directly. The returned asset bytes are nil for
// sidecars.
func loadAsset(path string) (*c2pa.Store, *jpeg.Image, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(data) >= 2 && data[0] == 0xff && data[1] == 0xd8 {
		img, err := jpeg.Read(bytes.NewReader(data))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if img.C2PA == nil {
			return nil, img, data, nil
		}
		store, err := c2pa.ParseStore(img.C2PA)
		if err != nil {
			return nil, img, data, fmt.Errorf("parsing store in %s: %w", path, err)
		}
		return store, img, data, nil
	}
	store, err := c2pa.ParseStore(data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return store, nil, nil, nil
}

// printStatuses prints each status and reports whether all passed.
func printStatuses(list []status.Status) bool {
	ok := true
	for _, st := range list {
		ok = ok && st.OK
		fmt.Println("# " + st.String())
	}
	return ok
}

// derivedOutputName turns "photo.jpg" into "photo-signed.jpg".
func derivedOutputName(in string) string {
	if i := strings.LastIndex(in, "."); i > 0 {
		return in[:i] + "-signed" + in[i:]
	}
	return in + "-signed.jpg"
}

// dumpStore writes the encoded store to a side file.
func dumpStore(store *c2pa.Store, path string) error {
	raw, err := store.Encode()
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}
