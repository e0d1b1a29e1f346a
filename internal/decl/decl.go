// Package decl models the TypeScript declaration files produced by
// OpenAPI-to-declarations converters as a small syntax tree, with a parser
// for the subset those converters emit and a printer that re-emits
// normalized source. Transformation passes never mutate a parsed Unit;
// they build new ones (see Clone).
package decl

import (
	"fmt"
	"unicode"
)

// Unit is a parsed declaration file: an ordered list of top-level
// declarations. Name identifies the source for diagnostics.
type Unit struct {
	Name  string
	Decls []*Decl
}

// Kind distinguishes the two top-level declaration forms.
type Kind int

const (
	Interface Kind = iota
	Alias
)

// Decl is a top-level named declaration: an interface (Body set) or a type
// alias (Type set).
type Decl struct {
	Kind Kind
	Name string
	Doc  []string
	Body *Object // interface body
	Type *Type   // alias target
}

// Object is an inline structural record: an ordered member list.
type Object struct {
	Members []*Member
}

// Member is a single (key, type) pair of an object or interface body.
type Member struct {
	Name     string
	Quoted   bool // key was a string literal in the source
	Optional bool
	Doc      []string
	Type     *Type
}

// Type is a type expression: either an inline object literal (Object set)
// or an opaque, whitespace-normalized source span (Raw set). Unions,
// references, primitives and anything else the passes do not need to look
// inside stay raw.
type Type struct {
	Object *Object
	Raw    string
}

// Interface returns the top-level interface declaration with the given
// name, or nil.
func (u *Unit) Interface(name string) *Decl {
	for _, d := range u.Decls {
		if d.Kind == Interface && d.Name == name {
			return d
		}
	}
	return nil
}

// Member returns the member with the given name, or nil.
func (o *Object) Member(name string) *Member {
	if o == nil {
		return nil
	}
	for _, m := range o.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Clone returns a deep copy of the unit.
func (u *Unit) Clone() *Unit {
	out := &Unit{Name: u.Name, Decls: make([]*Decl, 0, len(u.Decls))}
	for _, d := range u.Decls {
		out.Decls = append(out.Decls, d.Clone())
	}
	return out
}

// Clone returns a deep copy of the declaration.
func (d *Decl) Clone() *Decl {
	out := &Decl{Kind: d.Kind, Name: d.Name, Doc: append([]string(nil), d.Doc...)}
	if d.Body != nil {
		out.Body = d.Body.Clone()
	}
	if d.Type != nil {
		out.Type = d.Type.Clone()
	}
	return out
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	out := &Object{Members: make([]*Member, 0, len(o.Members))}
	for _, m := range o.Members {
		out.Members = append(out.Members, &Member{
			Name:     m.Name,
			Quoted:   m.Quoted,
			Optional: m.Optional,
			Doc:      append([]string(nil), m.Doc...),
			Type:     m.Type.Clone(),
		})
	}
	return out
}

// Clone returns a deep copy of the type expression.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	return &Type{Object: t.Object.Clone(), Raw: t.Raw}
}

// MissingStructureError reports an expected root member absent from a
// declaration unit. Structural errors at the root level are fatal: nothing
// useful can be emitted without the member.
type MissingStructureError struct {
	Unit string // unit name (file path or URL)
	Path string // e.g. "components.schemas"
}

func (e *MissingStructureError) Error() string {
	return fmt.Sprintf("declaration unit %s: no %s declaration found", e.Unit, e.Path)
}

// NeedsQuoting reports whether a member key must be emitted as a string
// literal (path templates, keys with dashes or slashes, leading digits).
func NeedsQuoting(name string) bool {
	if name == "" {
		return true
	}
	if unicode.IsDigit(rune(name[0])) {
		return true
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return true
		}
	}
	return false
}
