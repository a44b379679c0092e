package jumbf

import (
	"fmt"
	"strings"
)

// SuperBox is a JUMBF superbox ("jumb", ISO 19566-5 A.2): a container whose
// first child is a description box, followed by one or more content boxes.
// The C2PA tree types embed it.
type SuperBox struct {
	BaseBox
}

// NewSuperBox builds a superbox with a fresh description carrying the given
// subtype and label.
func NewSuperBox(subtype, label string) (*SuperBox, error) {
	b := &SuperBox{}
	Init(b, "jumb")
	if err := InitSuper(b, subtype, label); err != nil {
		return nil, err
	}
	return b, nil
}

// InitSuper initializes an embedder of SuperBox: sets its type to "jumb" and
// appends a description box with the subtype and label.
func InitSuper(self Box, subtype, label string) error {
	Init(self, "jumb")
	desc, err := NewDescriptionBox(subtype, label, -1)
	if err != nil {
		return err
	}
	return self.Append(desc)
}

// Description returns the leading description box, or nil.
func (b *SuperBox) Description() *DescriptionBox {
	if d, ok := b.first.(*DescriptionBox); ok {
		return d
	}
	return nil
}

// Subtype returns the description's subtype, or "".
func (b *SuperBox) Subtype() string {
	if d := b.Description(); d != nil {
		return d.Subtype()
	}
	return ""
}

// Label returns the description's label, or "".
func (b *SuperBox) Label() string {
	if d := b.Description(); d != nil {
		return d.Label()
	}
	return ""
}

// DescriptionOf returns the description box of any JUMBF superbox, including
// types from other packages that embed SuperBox. Returns nil for other boxes.
func DescriptionOf(b Box) *DescriptionBox {
	if b == nil || b.Type() != "jumb" {
		return nil
	}
	if d, ok := b.First().(*DescriptionBox); ok {
		return d
	}
	return nil
}

// LabelOf returns the description label of a superbox, or "".
func LabelOf(b Box) string {
	if d := DescriptionOf(b); d != nil {
		return d.Label()
	}
	return ""
}

// SubtypeOf returns the description subtype of a superbox, or "".
func SubtypeOf(b Box) string {
	if d := DescriptionOf(b); d != nil {
		return d.Subtype()
	}
	return ""
}

// IsRequestable reports whether a box is a superbox addressable by label.
func IsRequestable(b Box) bool {
	d := DescriptionOf(b)
	return d != nil && d.IsRequestable()
}

// FindByPath resolves a JUMBF path like "self#jumbf=a/b", "jumbf=/store/a" or
// "a/b" against ctx. Absolute paths (leading "/") start at ctx's root box,
// whose label must match the first segment; relative paths start at ctx.
// Returns nil if no box matches, or an error if the match is not requestable.
func FindByPath(ctx Box, path string) (Box, error) {
	if ctx == nil || path == "" {
		return nil, nil
	}
	path = strings.TrimPrefix(path, "self#")
	path = strings.TrimPrefix(path, "jumbf=")
	if strings.HasPrefix(path, "/") {
		root := ctx
		for root.Parent() != nil {
			root = root.Parent()
		}
		rest := path[1:]
		first := rest
		if i := strings.Index(rest, "/"); i >= 0 {
			first, rest = rest[:i], rest[i+1:]
		} else {
			rest = ""
		}
		if DescriptionOf(root) == nil || LabelOf(root) != first {
			return nil, nil
		}
		ctx = root
		path = rest
		if path == "" {
			return requireRequestable(ctx)
		}
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			return nil, nil
		}
		d := DescriptionOf(ctx)
		if d == nil || ctx.First() == nil {
			return nil, nil
		}
		child := ctx.First().Next()
		for child != nil && DescriptionOf(child) != nil {
			if LabelOf(child) == segment {
				break
			}
			child = child.Next()
		}
		if child == nil || DescriptionOf(child) == nil || LabelOf(child) != segment {
			return nil, nil
		}
		ctx = child
	}
	return requireRequestable(ctx)
}

func requireRequestable(b Box) (Box, error) {
	if !IsRequestable(b) {
		return nil, fmt.Errorf("jumbf: box %s is not requestable", b.String())
	}
	return b, nil
}

// PathTo returns the JUMBF path ("self#jumbf=...") addressing descendant from
// the given box: relative if descendant is under it, absolute otherwise.
// Returns "" if no path exists.
func PathTo(from, descendant Box) string {
	if descendant == nil {
		return ""
	}
	var s string
	b := descendant
	for b != nil {
		label := LabelOf(b)
		if label == "" {
			return ""
		}
		if s == "" {
			s = label
		} else {
			s = label + "/" + s
		}
		if b.Parent() == nil {
			return "self#jumbf=/" + s
		}
		b = b.Parent()
		if b == from {
			return "self#jumbf=" + s
		}
	}
	return ""
}
