// Package flatten lifts every entry of the components.schemas structure
// into its own top-level named declaration and rewrites the original unit
// to re-export the lifted names.
package flatten

import (
	"fmt"
	"regexp"

	"github.com/splinter-hq/tsgen/internal/decl"
)

// reservedNames are built-in type names a lifted declaration must not
// shadow; colliding entries get a trailing underscore.
var reservedNames = map[string]bool{
	"Object":   true,
	"Array":    true,
	"String":   true,
	"Number":   true,
	"Boolean":  true,
	"Function": true,
	"Symbol":   true,
	"Date":     true,
	"Error":    true,
	"Promise":  true,
	"Map":      true,
	"Set":      true,
	"RegExp":   true,
}

// schemaRefRe matches indirect references into the original schemas map,
// e.g. components["schemas"]["Pet"].
var schemaRefRe = regexp.MustCompile(`components\[(?:"schemas"|'schemas')\]\[(?:"([^"\]]*)"|'([^'\]]*)')\]`)

// TargetName returns the declaration name emitted for a schema entry:
// the entry's own name, underscore-suffixed when it collides with a
// built-in type name.
func TargetName(name string) string {
	if reservedNames[name] {
		return name + "_"
	}
	return name
}

// Flatten produces two new units from the input: a schemas unit with one
// top-level exported declaration per components.schemas entry, and a
// rewritten copy of the input whose schemas members re-export the lifted
// declarations via import('./schemas'). The input unit is not modified.
//
// Entries whose name differs from another only by the reserved-name suffix
// are not deduplicated further; that fidelity quirk is deliberate.
func Flatten(unit *decl.Unit) (schemas, rewritten *decl.Unit, err error) {
	comp := unit.Interface("components")
	if comp == nil {
		return nil, nil, &decl.MissingStructureError{Unit: unit.Name, Path: "components"}
	}
	entries := comp.Body.Member("schemas")
	if entries == nil || entries.Type == nil || entries.Type.Object == nil {
		return nil, nil, &decl.MissingStructureError{Unit: unit.Name, Path: "components.schemas"}
	}

	// Resolve every target name up front so cross-references rewrite
	// consistently regardless of entry order.
	targets := make(map[string]string, len(entries.Type.Object.Members))
	for _, m := range entries.Type.Object.Members {
		targets[m.Name] = TargetName(m.Name)
	}

	schemas = &decl.Unit{Name: "schemas"}
	for _, m := range entries.Type.Object.Members {
		shape := m.Type.Clone()
		rewriteRefs(shape, targets)
		d := &decl.Decl{Name: targets[m.Name], Doc: append([]string(nil), m.Doc...)}
		if shape != nil && shape.Object != nil {
			// Structural record: keep per-field types and docs verbatim.
			d.Kind = decl.Interface
			d.Body = shape.Object
		} else {
			// Union, array, primitive, reference, or anything
			// unrecognized: a named alias is the conservative form.
			d.Kind = decl.Alias
			d.Type = shape
			if d.Type == nil {
				d.Type = &decl.Type{Raw: "never"}
			}
		}
		schemas.Decls = append(schemas.Decls, d)
	}

	rewritten = unit.Clone()
	out := rewritten.Interface("components").Body.Member("schemas")
	for _, m := range out.Type.Object.Members {
		m.Type = &decl.Type{Raw: fmt.Sprintf("import('./schemas').%s", targets[m.Name])}
		m.Doc = nil
	}
	return schemas, rewritten, nil
}

// rewriteRefs replaces every indirect schemas-map reference inside the type
// with the lifted declaration name, removing one level of indirection.
func rewriteRefs(t *decl.Type, targets map[string]string) {
	if t == nil {
		return
	}
	if t.Object != nil {
		for _, m := range t.Object.Members {
			rewriteRefs(m.Type, targets)
		}
		return
	}
	t.Raw = schemaRefRe.ReplaceAllStringFunc(t.Raw, func(ref string) string {
		groups := schemaRefRe.FindStringSubmatch(ref)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		if target, ok := targets[name]; ok {
			return target
		}
		// Dangling reference: still collapse the indirection so the
		// output names the would-be declaration.
		return TargetName(name)
	})
}
