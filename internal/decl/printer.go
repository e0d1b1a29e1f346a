package decl

import (
	"bytes"
	"fmt"
)

// Print renders the unit as normalized TypeScript declaration source:
// 2-space indent, one member per line, JSDoc preserved, blank line between
// top-level declarations.
func Print(u *Unit) []byte {
	var b bytes.Buffer
	for i, d := range u.Decls {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeDoc(&b, d.Doc, "")
		switch d.Kind {
		case Interface:
			fmt.Fprintf(&b, "export interface %s ", d.Name)
			writeObject(&b, d.Body, "")
			b.WriteByte('\n')
		case Alias:
			fmt.Fprintf(&b, "export type %s = ", d.Name)
			writeType(&b, d.Type, "")
			b.WriteString(";\n")
		}
	}
	return b.Bytes()
}

func writeDoc(b *bytes.Buffer, doc []string, indent string) {
	switch len(doc) {
	case 0:
	case 1:
		fmt.Fprintf(b, "%s/** %s */\n", indent, doc[0])
	default:
		fmt.Fprintf(b, "%s/**\n", indent)
		for _, l := range doc {
			fmt.Fprintf(b, "%s * %s\n", indent, l)
		}
		fmt.Fprintf(b, "%s */\n", indent)
	}
}

func writeObject(b *bytes.Buffer, o *Object, indent string) {
	if o == nil || len(o.Members) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteString("{\n")
	inner := indent + "  "
	for _, m := range o.Members {
		writeDoc(b, m.Doc, inner)
		b.WriteString(inner)
		if m.Quoted || NeedsQuoting(m.Name) {
			fmt.Fprintf(b, "%q", m.Name)
		} else {
			b.WriteString(m.Name)
		}
		if m.Optional {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		writeType(b, m.Type, inner)
		b.WriteString(";\n")
	}
	b.WriteString(indent)
	b.WriteByte('}')
}

func writeType(b *bytes.Buffer, t *Type, indent string) {
	if t == nil {
		b.WriteString("never")
		return
	}
	if t.Object != nil {
		writeObject(b, t.Object, indent)
		return
	}
	b.WriteString(t.Raw)
}
