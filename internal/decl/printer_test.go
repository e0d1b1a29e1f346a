package decl

import (
	"bytes"
	"testing"
)

func TestPrint_Normalized(t *testing.T) {
	t.Parallel()
	u := &Unit{
		Name: "out.ts",
		Decls: []*Decl{
			{
				Kind: Interface,
				Name: "Pet",
				Doc:  []string{"A tracked pet."},
				Body: &Object{Members: []*Member{
					{Name: "id", Doc: []string{"Format: int64"}, Type: &Type{Raw: "number"}},
					{Name: "owner", Optional: true, Type: &Type{Raw: "Owner"}},
					{Name: "x-rate", Quoted: true, Type: &Type{Raw: "number"}},
					{Name: "meta", Type: &Type{Object: &Object{Members: []*Member{
						{Name: "etag", Type: &Type{Raw: "string"}},
					}}}},
				}},
			},
			{Kind: Interface, Name: "Empty", Body: &Object{}},
			{Kind: Alias, Name: "Status", Type: &Type{Raw: `"available" | "sold"`}},
			{Kind: Alias, Name: "Nothing"},
		},
	}

	want := `/** A tracked pet. */
export interface Pet {
  /** Format: int64 */
  id: number;
  owner?: Owner;
  "x-rate": number;
  meta: {
    etag: string;
  };
}

export interface Empty {}

export type Status = "available" | "sold";

export type Nothing = never;
`
	if got := string(Print(u)); got != want {
		t.Errorf("print mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

func TestPrint_MultilineDoc(t *testing.T) {
	t.Parallel()
	u := &Unit{Decls: []*Decl{{
		Kind: Alias,
		Name: "Ordering",
		Doc:  []string{"Which field to sort by.", "Defaults to creation time."},
		Type: &Type{Raw: "string"},
	}}}

	want := `/**
 * Which field to sort by.
 * Defaults to creation time.
 */
export type Ordering = string;
`
	if got := string(Print(u)); got != want {
		t.Errorf("print mismatch:\n--- got ---\n%s\n--- want ---\n%s", got, want)
	}
}

// Printing a parsed unit and re-parsing it must yield the same normalized
// output, so generated files are stable under regeneration.
func TestPrint_Stable(t *testing.T) {
	t.Parallel()
	u := parseSample(t)

	first := Print(u)
	again, err := Parse("roundtrip.ts", first)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	second := Print(again)
	if !bytes.Equal(first, second) {
		t.Errorf("output not stable:\n--- first ---\n%s\n--- second ---\n%s", first, second)
	}
}
