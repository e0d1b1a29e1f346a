// Package routes derives a deterministic table of canonical route
// identifiers from the paths structure of a declaration unit and renders it
// as a single exported constant mapping.
package routes

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/splinter-hq/tsgen/internal/decl"
)

// Entry pairs a canonical route identifier with the literal path template
// it names. Name may still contain hyphens; Render replaces them.
type Entry struct {
	Name string
	Path string
}

// opPatterns classifies operation keys by CRUD-style prefix. The list is
// ordered and evaluated first-match-wins: partialUpdate must precede update
// or partial updates would classify as plain updates.
var opPatterns = []struct {
	re *regexp.Regexp
	op string
}{
	{regexp.MustCompile(`(?i)^list`), "list"},
	{regexp.MustCompile(`(?i)^create`), "create"},
	{regexp.MustCompile(`(?i)^partialUpdate`), "partialupdate"},
	{regexp.MustCompile(`(?i)^update`), "update"},
	{regexp.MustCompile(`(?i)^retrieve`), "retrieve"},
	{regexp.MustCompile(`(?i)^destroy`), "destroy"},
}

var (
	lowerUpperRe  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymWordRe = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// Build walks the unit's paths interface and synthesizes exactly one Entry
// per path member, sorted strictly by identifier. The unit is read-only to
// this pass. Identifier collisions are resolved last-sorted-wins and
// reported as warnings, never silently.
func Build(unit *decl.Unit) (entries []Entry, warnings []string, err error) {
	paths := unit.Interface("paths")
	if paths == nil {
		return nil, nil, &decl.MissingStructureError{Unit: unit.Name, Path: "paths"}
	}

	for _, m := range paths.Body.Members {
		entries = append(entries, Entry{Name: routeName(m), Path: m.Name})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Path < entries[j].Path
	})

	deduped := entries[:0]
	for _, e := range entries {
		if n := len(deduped); n > 0 && deduped[n-1].Name == e.Name {
			warnings = append(warnings, fmt.Sprintf(
				"route %s: path %q replaces %q", e.Name, e.Path, deduped[n-1].Path))
			deduped[n-1] = e
			continue
		}
		deduped = append(deduped, e)
	}
	return deduped, warnings, nil
}

// routeName synthesizes the canonical identifier for one path entry.
func routeName(m *decl.Member) string {
	ops := make(map[string]bool)
	var bestKey, bestBase string
	if m.Type != nil && m.Type.Object != nil {
		for _, op := range m.Type.Object.Members {
			key := op.Name
			base := key
			for _, p := range opPatterns {
				if loc := p.re.FindStringIndex(key); loc != nil {
					ops[p.op] = true
					base = key[loc[1]:]
					break
				}
			}
			// The longest raw operation key contributes the working
			// name; on equal length the first one seen stays. A key
			// with no recognized prefix degrades to itself, so a
			// path with only custom actions still gets an entry.
			if len(key) > len(bestKey) {
				bestKey, bestBase = key, base
			}
		}
	}

	name := bestBase
	switch {
	case ops["list"]:
		name += "_list"
	case lastSegmentParameterized(m.Name) &&
		(ops["partialupdate"] || ops["update"] || ops["retrieve"] || ops["destroy"]):
		name += "_detail"
	}
	return upperSnake(name)
}

// lastSegmentParameterized reports whether the final non-empty segment of a
// path template contains a {param} placeholder.
func lastSegmentParameterized(path string) bool {
	segments := strings.Split(strings.TrimRight(path, "/"), "/")
	if len(segments) == 0 {
		return false
	}
	return strings.Contains(segments[len(segments)-1], "{")
}

// upperSnake converts a mixed-case working name to SCREAMING_SNAKE_CASE:
// an underscore before each acronym-to-word boundary, then before each
// lower-to-upper boundary, then the whole string upper-cased.
func upperSnake(s string) string {
	s = acronymWordRe.ReplaceAllString(s, "${1}_${2}")
	s = lowerUpperRe.ReplaceAllString(s, "${1}_${2}")
	return strings.ToUpper(s)
}

// Render emits the sorted entries as a single exported literal constant
// object, one entry per line, path templates quoted verbatim. Hyphens in
// identifiers become underscores here, at emission time.
func Render(entries []Entry) []byte {
	var b bytes.Buffer
	b.WriteString("export const ApiUrls = {\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s: '%s',\n", strings.ReplaceAll(e.Name, "-", "_"), e.Path)
	}
	b.WriteString("} as const;\n")
	return b.Bytes()
}
