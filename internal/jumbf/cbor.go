package jumbf

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	// Deterministic encoding: the two-pass embed relies on the claim
	// re-encoding to the same length on both passes.
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// CBORMarshal encodes v with the deterministic encoding used for claims and
// assertion payloads.
func CBORMarshal(v any) ([]byte, error) {
	return cborEnc.Marshal(v)
}

// CBORUnmarshal decodes a single CBOR item; maps decode to map[string]any.
func CBORUnmarshal(b []byte) (any, error) {
	var v any
	if err := cborDec.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
