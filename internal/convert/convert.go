// Package convert turns a validated OpenAPI v3 document into the
// declaration unit shape emitted by OpenAPI-to-declarations converters: a
// components interface whose schemas member holds one entry per component
// schema, and a paths interface keyed by literal path templates whose
// members are operation maps keyed by operationId.
package convert

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/splinter-hq/tsgen/internal/decl"
)

const schemaRefPrefix = "#/components/schemas/"

// Document builds a declaration unit from doc. name identifies the source
// in diagnostics. Output is deterministic: schema entries and paths are
// emitted in sorted order, operations in a fixed method order.
func Document(name string, doc *openapi3.T) *decl.Unit {
	unit := &decl.Unit{Name: name}
	unit.Decls = append(unit.Decls, componentsDecl(doc))
	unit.Decls = append(unit.Decls, pathsDecl(doc))
	return unit
}

func componentsDecl(doc *openapi3.T) *decl.Decl {
	schemas := &decl.Object{}
	if doc.Components != nil && len(doc.Components.Schemas) > 0 {
		names := make([]string, 0, len(doc.Components.Schemas))
		for n := range doc.Components.Schemas {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			ref := doc.Components.Schemas[n]
			schemas.Members = append(schemas.Members, &decl.Member{
				Name: n,
				Doc:  docLines(ref),
				Type: typeOf(ref),
			})
		}
	}
	return &decl.Decl{
		Kind: decl.Interface,
		Name: "components",
		Body: &decl.Object{Members: []*decl.Member{
			{Name: "schemas", Type: &decl.Type{Object: schemas}},
		}},
	}
}

func pathsDecl(doc *openapi3.T) *decl.Decl {
	body := &decl.Object{}
	if doc.Paths != nil {
		keys := make([]string, 0, len(doc.Paths))
		for p := range doc.Paths {
			keys = append(keys, p)
		}
		sort.Strings(keys)
		for _, p := range keys {
			item := doc.Paths[p]
			if item == nil {
				continue
			}
			body.Members = append(body.Members, &decl.Member{
				Name:   p,
				Quoted: true,
				Type:   &decl.Type{Object: operationMap(p, item)},
			})
		}
	}
	return &decl.Decl{Kind: decl.Interface, Name: "paths", Body: body}
}

// operationMap emits one member per operation, keyed by operationId (the
// upstream schema generator synthesizes these as verb+resource names).
func operationMap(path string, item *openapi3.PathItem) *decl.Object {
	ops := []struct {
		method string
		op     *openapi3.Operation
	}{
		{"get", item.Get},
		{"put", item.Put},
		{"post", item.Post},
		{"delete", item.Delete},
		{"options", item.Options},
		{"head", item.Head},
		{"patch", item.Patch},
		{"trace", item.Trace},
	}
	out := &decl.Object{}
	for _, pair := range ops {
		if pair.op == nil {
			continue
		}
		key := pair.op.OperationID
		if key == "" {
			key = fallbackOperationID(pair.method, path)
		}
		var doc []string
		if s := strings.TrimSpace(pair.op.Summary); s != "" {
			doc = []string{s}
		}
		out.Members = append(out.Members, &decl.Member{
			Name: key,
			Doc:  doc,
			Type: &decl.Type{Object: operationShape(pair.op)},
		})
	}
	return out
}

// operationShape models an operation as its request/response type pair.
func operationShape(op *openapi3.Operation) *decl.Object {
	shape := &decl.Object{}
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if schema := jsonSchema(op.RequestBody.Value.Content); schema != nil {
			shape.Members = append(shape.Members, &decl.Member{
				Name:     "requestBody",
				Optional: !op.RequestBody.Value.Required,
				Type:     typeOf(schema),
			})
		}
	}
	shape.Members = append(shape.Members, &decl.Member{
		Name: "response",
		Type: responseType(op),
	})
	return shape
}

func responseType(op *openapi3.Operation) *decl.Type {
	if op.Responses == nil {
		return &decl.Type{Raw: "never"}
	}
	statuses := make([]string, 0, len(op.Responses))
	for s := range op.Responses {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		if !strings.HasPrefix(s, "2") {
			continue
		}
		ref := op.Responses[s]
		if ref == nil || ref.Value == nil {
			continue
		}
		if schema := jsonSchema(ref.Value.Content); schema != nil {
			return typeOf(schema)
		}
	}
	return &decl.Type{Raw: "never"}
}

func jsonSchema(content openapi3.Content) *openapi3.SchemaRef {
	if content == nil {
		return nil
	}
	if mt := content.Get("application/json"); mt != nil {
		return mt.Schema
	}
	return nil
}

// fallbackOperationID synthesizes a key for operations the generator left
// unnamed, e.g. "get" + "/api/v1/items/{id}/" becomes getApiV1ItemsId.
func fallbackOperationID(method, path string) string {
	var b strings.Builder
	b.WriteString(method)
	for _, seg := range strings.Split(path, "/") {
		seg = strings.Trim(seg, "{}")
		if seg == "" {
			continue
		}
		seg = strings.ReplaceAll(seg, "-", "")
		seg = strings.ReplaceAll(seg, ".", "")
		if seg == "" {
			continue
		}
		b.WriteString(strings.ToUpper(seg[:1]))
		b.WriteString(seg[1:])
	}
	return b.String()
}

// typeOf maps a schema to a declaration type: plain object schemas become
// structural records, everything else a raw expression. A zero-property
// object still yields an (empty) record.
func typeOf(ref *openapi3.SchemaRef) *decl.Type {
	if ref == nil || ref.Value == nil {
		return &decl.Type{Raw: "unknown"}
	}
	if ref.Ref != "" {
		return &decl.Type{Raw: refExpr(ref.Ref)}
	}
	v := ref.Value
	plainObject := (v.Type == "object" || (v.Type == "" && len(v.Properties) > 0)) &&
		!v.Nullable && len(v.Enum) == 0 &&
		len(v.OneOf) == 0 && len(v.AnyOf) == 0 && len(v.AllOf) == 0 &&
		v.AdditionalProperties.Schema == nil
	if !plainObject {
		return &decl.Type{Raw: rawType(ref)}
	}
	obj := &decl.Object{}
	required := make(map[string]bool, len(v.Required))
	for _, r := range v.Required {
		required[r] = true
	}
	props := make([]string, 0, len(v.Properties))
	for p := range v.Properties {
		props = append(props, p)
	}
	sort.Strings(props)
	for _, p := range props {
		obj.Members = append(obj.Members, &decl.Member{
			Name:     p,
			Optional: !required[p],
			Doc:      docLines(v.Properties[p]),
			Type:     typeOf(v.Properties[p]),
		})
	}
	return &decl.Type{Object: obj}
}

// rawType renders a schema as a single-line type expression.
func rawType(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil {
		return "unknown"
	}
	if ref.Ref != "" {
		return refExpr(ref.Ref)
	}
	v := ref.Value
	var expr string
	switch {
	case len(v.Enum) > 0:
		parts := make([]string, 0, len(v.Enum))
		for _, e := range v.Enum {
			switch ev := e.(type) {
			case string:
				parts = append(parts, fmt.Sprintf("%q", ev))
			case nil:
				parts = append(parts, "null")
			default:
				parts = append(parts, fmt.Sprintf("%v", ev))
			}
		}
		expr = strings.Join(parts, " | ")
	case len(v.OneOf) > 0:
		expr = joinVariants(v.OneOf, " | ")
	case len(v.AnyOf) > 0:
		expr = joinVariants(v.AnyOf, " | ")
	case len(v.AllOf) > 0:
		expr = joinVariants(v.AllOf, " & ")
	case v.Type == "array":
		elem := rawType(v.Items)
		if strings.ContainsAny(elem, " |&") {
			elem = "(" + elem + ")"
		}
		expr = elem + "[]"
	case v.Type == "object" || (v.Type == "" && len(v.Properties) > 0):
		expr = rawObject(v)
	case v.Type == "string":
		expr = "string"
	case v.Type == "integer" || v.Type == "number":
		expr = "number"
	case v.Type == "boolean":
		expr = "boolean"
	default:
		expr = "unknown"
	}
	if v.Nullable {
		expr += " | null"
	}
	return expr
}

func joinVariants(refs openapi3.SchemaRefs, sep string) string {
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		p := rawType(r)
		if sep == " & " && strings.Contains(p, " | ") {
			p = "(" + p + ")"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, sep)
}

// rawObject renders an inline object schema on one line; used where a
// structural record cannot stand on its own (array elements, union arms).
func rawObject(v *openapi3.Schema) string {
	if v.AdditionalProperties.Schema != nil {
		return fmt.Sprintf("{ [key: string]: %s }", rawType(v.AdditionalProperties.Schema))
	}
	if len(v.Properties) == 0 {
		return "Record<string, never>"
	}
	required := make(map[string]bool, len(v.Required))
	for _, r := range v.Required {
		required[r] = true
	}
	props := make([]string, 0, len(v.Properties))
	for p := range v.Properties {
		props = append(props, p)
	}
	sort.Strings(props)
	parts := make([]string, 0, len(props))
	for _, p := range props {
		key := p
		if decl.NeedsQuoting(key) {
			key = fmt.Sprintf("%q", key)
		}
		if !required[p] {
			key += "?"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", key, rawType(v.Properties[p])))
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func refExpr(ref string) string {
	name := strings.TrimPrefix(ref, schemaRefPrefix)
	return fmt.Sprintf(`components["schemas"][%q]`, name)
}

// docLines carries the schema description and a format hint into JSDoc.
func docLines(ref *openapi3.SchemaRef) []string {
	if ref == nil || ref.Value == nil || ref.Ref != "" {
		return nil
	}
	var out []string
	for _, l := range strings.Split(strings.TrimSpace(ref.Value.Description), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if f := strings.TrimSpace(ref.Value.Format); f != "" {
		out = append(out, "Format: "+f)
	}
	return out
}
