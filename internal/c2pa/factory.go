package c2pa

import (
	"github.com/signedmedia/c2pa-go/internal/jumbf"
)

// ContainerSubtype identifies the "uuid" box wrapping a C2PA store inside a
// BMFF file.
const ContainerSubtype = "d8fec3d61b0e483c92975828877ec481"

// NewFactory returns a box factory with the C2PA tree and assertion types
// registered on top of the core JUMBF set.
func NewFactory() *jumbf.Factory {
	f := jumbf.NewFactory()
	f.Register("jumb", "c2pa", "", true, func() jumbf.Box { return &Store{} })
	f.Register("jumb", "c2ma", "", true, func() jumbf.Box { return &Manifest{} })
	f.Register("jumb", "c2cl", "", true, func() jumbf.Box { return &Claim{} })
	f.Register("jumb", "c2cs", "", true, func() jumbf.Box { return &Signature{} })

	f.Register("uuid", ContainerSubtype, "", false, func() jumbf.Box { return &ContainerBox{} })

	f.Register("jumb", "cbor", "c2pa.actions", true, func() jumbf.Box { return &ActionsAssertion{} })
	f.Register("jumb", "cbor", "c2pa.hash.data", true, func() jumbf.Box { return &DataHashAssertion{} })
	f.Register("jumb", "cbor", "c2pa.hash.bmff", true, func() jumbf.Box { return &BMFFHashAssertion{} })
	f.Register("jumb", "cbor", "c2pa.hash.bmff.v2", true, func() jumbf.Box { return &BMFFHashAssertion{} })
	f.Register("jumb", "cbor", "c2pa.ingredient", true, func() jumbf.Box { return &IngredientAssertion{} })
	f.Register("jumb", "cbor", "c2pa.soft-binding", true, func() jumbf.Box { return &CBORAssertion{} })
	f.Register("jumb", "cbor", "c2pa.cloud-data", true, func() jumbf.Box { return &CBORAssertion{} })
	f.Register("jumb", "cbor", "c2pa.depthmap.GDepth", true, func() jumbf.Box { return &CBORAssertion{} })
	f.Register("jumb", "cbor", "c2pa.endorsement", true, func() jumbf.Box { return &CBORAssertion{} })

	f.Register("jumb", "json", "stds.exif", true, func() jumbf.Box { return &SchemaAssertion{} })
	f.Register("jumb", "json", "stds.iptc", true, func() jumbf.Box { return &SchemaAssertion{} })
	f.Register("jumb", "json", "stds.schema-org.ClaimReview", true, func() jumbf.Box { return &SchemaAssertion{} })
	f.Register("jumb", "json", "stds.schema-org.CreativeWork", true, func() jumbf.Box { return &SchemaAssertion{} })

	f.Register("jumb", jumbf.EmbeddedFileSubtype, "c2pa.thumbnail", true, func() jumbf.Box { return &ThumbnailAssertion{} })
	return f
}

// ParseStore parses encoded store bytes into a Store.
func ParseStore(raw []byte) (*Store, error) {
	return parseStoreBytes(raw)
}
