package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func executeRoot(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	return cmd.Execute()
}

// stubRunner replaces the generate runner so tests can observe the resolved
// config without running the pipeline. Tests using it must not be parallel.
func stubRunner(t *testing.T) **GenerateConfig {
	t.Helper()
	var captured *GenerateConfig
	orig := generateRunner
	generateRunner = func(_ context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = orig })
	return &captured
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tsgen.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestGenerate_Defaults(t *testing.T) {
	captured := stubRunner(t)

	if err := executeRoot(t, "generate", "--input", "http://localhost:8000/api/schema/"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg == nil {
		t.Fatal("runner not invoked")
	}
	if cfg.Mode != ModeOpenAPI {
		t.Errorf("mode: got %q, want %q", cfg.Mode, ModeOpenAPI)
	}
	if cfg.Out != "." || cfg.SchemaOut != "schema.d.ts" || cfg.TypesOut != "schemas.ts" || cfg.RoutesOut != "routes.ts" {
		t.Errorf("defaults: got %+v", cfg)
	}
	if cfg.DryRun || cfg.Force || cfg.Verbose {
		t.Errorf("boolean defaults: got %+v", cfg)
	}
}

func TestGenerate_ConfigFileAndFlagOverrides(t *testing.T) {
	captured := stubRunner(t)
	path := writeConfig(t, strings.TrimSpace(`
input: http://localhost:8000/api/schema/
out: ./src/api
types-out: models.ts
force: true
`)+"\n")

	err := executeRoot(t, "--config", path, "--verbose", "generate", "--routes-out", "urls.ts")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg.Input != "http://localhost:8000/api/schema/" {
		t.Errorf("input: got %q", cfg.Input)
	}
	if cfg.Out != "./src/api" || cfg.TypesOut != "models.ts" || !cfg.Force {
		t.Errorf("config values: got %+v", cfg)
	}
	if cfg.RoutesOut != "urls.ts" {
		t.Errorf("flag override: got %q", cfg.RoutesOut)
	}
	if !cfg.Verbose {
		t.Error("persistent --verbose not applied")
	}
	if cfg.SchemaOut != "schema.d.ts" {
		t.Errorf("untouched default: got %q", cfg.SchemaOut)
	}
}

func TestGenerate_FlagBeatsConfig(t *testing.T) {
	captured := stubRunner(t)
	path := writeConfig(t, "input: from-config.d.ts\nmode: decl\n")

	if err := executeRoot(t, "--config", path, "generate", "--input", "override.yaml", "--mode", "openapi"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg.Input != "override.yaml" || cfg.Mode != ModeOpenAPI {
		t.Errorf("override: got input=%q mode=%q", cfg.Input, cfg.Mode)
	}
}

func TestGenerate_ModeSniffing(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"declaration suffix", []string{"generate", "--input", "schema.d.ts"}, ModeDecl},
		{"declaration URL", []string{"generate", "--input", "http://host/static/schema.ts"}, ModeDecl},
		{"document", []string{"generate", "--input", "openapi.yaml"}, ModeOpenAPI},
		{"schema endpoint", []string{"generate", "--input", "http://host/api/schema/"}, ModeOpenAPI},
		{"explicit wins", []string{"generate", "--input", "schema.d.ts", "--mode", "openapi"}, ModeOpenAPI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			captured := stubRunner(t)
			if err := executeRoot(t, tc.args...); err != nil {
				t.Fatalf("execute: %v", err)
			}
			if got := (*captured).Mode; got != tc.want {
				t.Errorf("mode: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGenerate_UsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args func(t *testing.T) []string
		want string
	}{
		{
			name: "missing input",
			args: func(t *testing.T) []string { return []string{"generate"} },
			want: "--input is required",
		},
		{
			name: "bad mode",
			args: func(t *testing.T) []string {
				return []string{"generate", "--input", "x.yaml", "--mode", "grpc"}
			},
			want: "unsupported --mode",
		},
		{
			name: "duplicate output names",
			args: func(t *testing.T) []string {
				return []string{"generate", "--input", "x.yaml", "--types-out", "api.ts", "--routes-out", "api.ts"}
			},
			want: "both name",
		},
		{
			name: "empty output name",
			args: func(t *testing.T) []string {
				return []string{"generate", "--input", "x.yaml", "--schema-out", "  "}
			},
			want: "must not be empty",
		},
		{
			name: "unknown flag",
			args: func(t *testing.T) []string {
				return []string{"generate", "--input", "x.yaml", "--bogus"}
			},
			want: "unknown flag",
		},
		{
			name: "unknown config field",
			args: func(t *testing.T) []string {
				return []string{"--config", writeConfig(t, "wat: true\n"), "generate", "--input", "x.yaml"}
			},
			want: "unknown field",
		},
		{
			name: "bad config boolean",
			args: func(t *testing.T) []string {
				return []string{"--config", writeConfig(t, "force: maybe\n"), "generate", "--input", "x.yaml"}
			},
			want: "invalid boolean",
		},
		{
			name: "missing config file",
			args: func(t *testing.T) []string {
				return []string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "generate", "--input", "x.yaml"}
			},
			want: "read config file",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stubRunner(t)
			err := executeRoot(t, tc.args(t)...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrUsage) {
				t.Errorf("not a usage error: %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("message: got %q, want substring %q", err, tc.want)
			}
		})
	}
}

func TestSniffMode(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want string }{
		{"schema.d.ts", ModeDecl},
		{"types.ts", ModeDecl},
		{"http://host/schema.ts/", ModeDecl},
		{"openapi.yaml", ModeOpenAPI},
		{"http://host/api/schema/", ModeOpenAPI},
		{"", ModeOpenAPI},
	}
	for _, tc := range cases {
		if got := sniffMode(tc.in); got != tc.want {
			t.Errorf("sniffMode(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteOutputs(t *testing.T) {
	t.Parallel()
	files := map[string][]byte{
		"routes.ts":  []byte("export const ApiUrls = {\n} as const;\n"),
		"schemas.ts": []byte("export type A = never;\n"),
	}

	t.Run("writes fresh files", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := writeOutputs(dir, files, false, false); err != nil {
			t.Fatalf("writeOutputs: %v", err)
		}
		for rel, want := range files {
			got, err := os.ReadFile(filepath.Join(dir, rel))
			if err != nil {
				t.Fatalf("read %s: %v", rel, err)
			}
			if string(got) != string(want) {
				t.Errorf("%s: got %q", rel, got)
			}
		}
	})

	t.Run("identical content is left alone", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := writeOutputs(dir, files, false, false); err != nil {
			t.Fatalf("first write: %v", err)
		}
		if err := writeOutputs(dir, files, false, false); err != nil {
			t.Errorf("rewrite of identical content: %v", err)
		}
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "routes.ts"), []byte("stale"), 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
		err := writeOutputs(dir, files, false, false)
		if !errors.Is(err, ErrUsage) {
			t.Fatalf("expected usage error, got %v", err)
		}
	})

	t.Run("force replaces", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "routes.ts"), []byte("stale"), 0o644); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := writeOutputs(dir, files, true, false); err != nil {
			t.Fatalf("writeOutputs: %v", err)
		}
		got, err := os.ReadFile(filepath.Join(dir, "routes.ts"))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(got) != string(files["routes.ts"]) {
			t.Errorf("content: got %q", got)
		}
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "planned")
		if err := writeOutputs(dir, files, false, true); err != nil {
			t.Fatalf("writeOutputs: %v", err)
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("dry run touched the output directory: %v", err)
		}
	})
}
