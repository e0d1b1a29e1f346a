package decl

import (
	"fmt"
	"strings"
)

// ParseError is a parse failure with the line of the offending token so the
// problem can be located in the generated input.
type ParseError struct {
	Unit    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s:%d: %s", e.Unit, e.Line, e.Message)
}

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tString
	tPunct
	tJSDoc
)

type token struct {
	kind tokenKind
	text string // ident text, punct char, unquoted string value, or jsdoc body
	line int
	pos  int // byte offsets into the source
	end  int
}

// Parse reads a declaration file into a Unit. name identifies the source in
// diagnostics. Only the subset emitted by OpenAPI-to-declarations
// converters is accepted: exported interfaces and type aliases whose
// members are `key?: type;` pairs with optional JSDoc comments.
func Parse(name string, src []byte) (*Unit, error) {
	p := &parser{unit: name, src: string(src)}
	if err := p.lex(); err != nil {
		return nil, err
	}
	u := &Unit{Name: name}
	for p.cur().kind != tEOF {
		d, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		u.Decls = append(u.Decls, d)
	}
	return u, nil
}

type parser struct {
	unit string
	src  string
	toks []token
	i    int
}

func (p *parser) errf(t token, format string, args ...any) error {
	return &ParseError{Unit: p.unit, Line: t.line, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) lex() error {
	src := p.src
	line := 1
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			start := i
			startLine := line
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return &ParseError{Unit: p.unit, Line: startLine, Message: "unterminated comment"}
			}
			end = i + 2 + end + 2
			body := src[i : end-2]
			line += strings.Count(src[i:end], "\n")
			if strings.HasPrefix(body, "/**") {
				p.toks = append(p.toks, token{kind: tJSDoc, text: body[3:], line: startLine, pos: start, end: end})
			}
			i = end
		case c == '\'' || c == '"':
			start := i
			i++
			var b strings.Builder
			for {
				if i >= len(src) || src[i] == '\n' {
					return &ParseError{Unit: p.unit, Line: line, Message: "unterminated string literal"}
				}
				if src[i] == '\\' && i+1 < len(src) {
					b.WriteByte(src[i+1])
					i += 2
					continue
				}
				if src[i] == c {
					i++
					break
				}
				b.WriteByte(src[i])
				i++
			}
			p.toks = append(p.toks, token{kind: tString, text: b.String(), line: line, pos: start, end: i})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			p.toks = append(p.toks, token{kind: tIdent, text: src[start:i], line: line, pos: start, end: i})
		default:
			p.toks = append(p.toks, token{kind: tPunct, text: string(c), line: line, pos: i, end: i + 1})
			i++
		}
	}
	p.toks = append(p.toks, token{kind: tEOF, line: line, pos: len(src), end: len(src)})
	return nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *parser) cur() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tEOF {
		p.i++
	}
	return t
}

func (p *parser) acceptPunct(s string) bool {
	if t := p.cur(); t.kind == tPunct && t.text == s {
		p.i++
		return true
	}
	return false
}

func (p *parser) expectPunct(s string) error {
	if !p.acceptPunct(s) {
		return p.errf(p.cur(), "expected %q, found %q", s, p.cur().text)
	}
	return nil
}

func (p *parser) takeDoc() []string {
	var doc []string
	for p.cur().kind == tJSDoc {
		doc = docLines(p.next().text)
	}
	return doc
}

// docLines strips comment decoration from a JSDoc body.
func docLines(body string) []string {
	var out []string
	for _, l := range strings.Split(body, "\n") {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "*")
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (p *parser) parseDecl() (*Decl, error) {
	doc := p.takeDoc()
	// export and declare are accepted and dropped; the printer always
	// re-emits export.
	for p.cur().kind == tIdent && (p.cur().text == "export" || p.cur().text == "declare") {
		p.next()
	}
	kw := p.next()
	if kw.kind != tIdent {
		return nil, p.errf(kw, "expected declaration, found %q", kw.text)
	}
	switch kw.text {
	case "interface":
		name := p.next()
		if name.kind != tIdent {
			return nil, p.errf(name, "expected interface name, found %q", name.text)
		}
		body, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		return &Decl{Kind: Interface, Name: name.text, Doc: doc, Body: body}, nil
	case "type":
		name := p.next()
		if name.kind != tIdent {
			return nil, p.errf(name, "expected type alias name, found %q", name.text)
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return &Decl{Kind: Alias, Name: name.text, Doc: doc, Type: typ}, nil
	default:
		return nil, p.errf(kw, "expected interface or type declaration, found %q", kw.text)
	}
}

func (p *parser) parseObject() (*Object, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	obj := &Object{}
	for {
		if p.acceptPunct("}") {
			return obj, nil
		}
		if p.cur().kind == tEOF {
			return nil, p.errf(p.cur(), "unterminated object type")
		}
		m, err := p.parseMember()
		if err != nil {
			return nil, err
		}
		obj.Members = append(obj.Members, m)
	}
}

func (p *parser) parseMember() (*Member, error) {
	doc := p.takeDoc()
	if t := p.cur(); t.kind == tIdent && t.text == "readonly" {
		if n := p.toks[p.i+1]; n.kind == tIdent || n.kind == tString {
			p.next()
		}
	}
	key := p.next()
	if key.kind != tIdent && key.kind != tString {
		return nil, p.errf(key, "expected member key, found %q", key.text)
	}
	m := &Member{Name: key.text, Quoted: key.kind == tString, Doc: doc}
	m.Optional = p.acceptPunct("?")
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	m.Type = typ
	// Converters terminate members with semicolons; tolerate commas.
	if !p.acceptPunct(";") {
		if !p.acceptPunct(",") {
			return nil, p.errf(p.cur(), "expected %q after member %s, found %q", ";", m.Name, p.cur().text)
		}
	}
	return m, nil
}

// parseType reads a type expression terminated by a top-level semicolon or
// comma. A plain object literal is parsed structurally; anything else
// (unions, references, index signatures, parenthesized forms) is kept as a
// raw span.
func (p *parser) parseType() (*Type, error) {
	if t := p.cur(); t.kind == tPunct && t.text == "{" {
		save := p.i
		if obj, err := p.parseObject(); err == nil {
			if t := p.cur(); t.kind == tPunct && (t.text == ";" || t.text == ",") {
				return &Type{Object: obj}, nil
			}
		}
		p.i = save
	}
	start := p.cur()
	if start.kind == tEOF {
		return nil, p.errf(start, "expected type expression")
	}
	depth := 0
	last := start
	for {
		t := p.cur()
		if t.kind == tEOF {
			return nil, p.errf(start, "unterminated type expression")
		}
		if t.kind == tPunct {
			switch t.text {
			case "{", "[", "(":
				depth++
			case "}", "]", ")":
				depth--
				if depth < 0 {
					return nil, p.errf(t, "unbalanced %q in type expression", t.text)
				}
			case ";", ",":
				if depth == 0 {
					if last == start && t.pos == start.pos {
						return nil, p.errf(t, "empty type expression")
					}
					return &Type{Raw: normalizeSpan(p.src[start.pos:last.end])}, nil
				}
			}
		}
		last = t
		p.i++
	}
}

// normalizeSpan collapses whitespace runs so raw expressions print on one
// line regardless of the input formatting.
func normalizeSpan(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
