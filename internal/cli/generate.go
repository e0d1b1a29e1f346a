package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/splinter-hq/tsgen/internal/convert"
	"github.com/splinter-hq/tsgen/internal/decl"
	"github.com/splinter-hq/tsgen/internal/flatten"
	"github.com/splinter-hq/tsgen/internal/routes"
	"github.com/splinter-hq/tsgen/internal/source"
)

// generatedHeader marks every emitted file. Kept byte-stable so repeated
// runs on identical input produce identical artifacts.
const generatedHeader = "// Code generated by tsgen. DO NOT EDIT.\n\n"

// Input modes.
const (
	ModeOpenAPI = "openapi" // fetch an OpenAPI document and convert it
	ModeDecl    = "decl"    // fetch a pre-built declaration file and parse it
)

// GenerateConfig captures all inputs that influence the generate command
// after merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input      string
	Mode       string
	Out        string
	SchemaOut  string // rewritten declaration file
	TypesOut   string // flattened schema declarations
	RoutesOut  string // route table
	ConfigPath string
	DryRun     bool
	Force      bool
	Verbose    bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Out:       ".",
		SchemaOut: "schema.d.ts",
		TypesOut:  "schemas.ts",
		RoutesOut: "routes.ts",
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate schema and route artifacts from an API schema",
		Long: "Generate the flattened schema declarations, the rewritten declaration file, " +
			"and the route table. Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  tsgen generate --input http://localhost:8000/api/schema/ --out ./src/api
  tsgen generate --input schema.d.ts --mode decl --out ./src/api
  tsgen --config tsgen.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the OpenAPI document or declaration file")
	flags.String("mode", "", "Input kind (openapi|decl); sniffed from the input suffix when omitted")
	flags.String("out", "", "Output directory; defaults to the current directory")
	flags.String("schema-out", "", "Rewritten declaration file name (default schema.d.ts)")
	flags.String("types-out", "", "Flattened schema declarations file name (default schemas.ts)")
	flags.String("routes-out", "", "Route table file name (default routes.ts)")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output files when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(value)
	}
	if flags.Changed("mode") {
		value, err := flags.GetString("mode")
		if err != nil {
			return err
		}
		cfg.Mode = strings.TrimSpace(value)
	}
	if flags.Changed("out") {
		value, err := flags.GetString("out")
		if err != nil {
			return err
		}
		cfg.Out = strings.TrimSpace(value)
	}
	if flags.Changed("schema-out") {
		value, err := flags.GetString("schema-out")
		if err != nil {
			return err
		}
		cfg.SchemaOut = strings.TrimSpace(value)
	}
	if flags.Changed("types-out") {
		value, err := flags.GetString("types-out")
		if err != nil {
			return err
		}
		cfg.TypesOut = strings.TrimSpace(value)
	}
	if flags.Changed("routes-out") {
		value, err := flags.GetString("routes-out")
		if err != nil {
			return err
		}
		cfg.RoutesOut = strings.TrimSpace(value)
	}
	if flags.Changed("dry-run") {
		value, err := flags.GetBool("dry-run")
		if err != nil {
			return err
		}
		cfg.DryRun = value
	}
	if flags.Changed("force") {
		value, err := flags.GetBool("force")
		if err != nil {
			return err
		}
		cfg.Force = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.Out = strings.TrimSpace(c.Out)
	if c.Out == "" {
		c.Out = "."
	}
	c.SchemaOut = strings.TrimSpace(c.SchemaOut)
	c.TypesOut = strings.TrimSpace(c.TypesOut)
	c.RoutesOut = strings.TrimSpace(c.RoutesOut)
	if c.Mode == "" {
		c.Mode = sniffMode(c.Input)
	}
}

// sniffMode guesses the input kind from the location suffix: declaration
// files end in .ts, everything else is treated as an OpenAPI document.
func sniffMode(input string) string {
	if strings.HasSuffix(strings.TrimSuffix(input, "/"), ".ts") {
		return ModeDecl
	}
	return ModeOpenAPI
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}

	switch c.Mode {
	case ModeOpenAPI, ModeDecl:
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --mode %q (allowed: openapi, decl)", c.Mode))
	}

	seen := make(map[string]string, 3)
	for _, pair := range []struct{ flag, name string }{
		{"schema-out", c.SchemaOut},
		{"types-out", c.TypesOut},
		{"routes-out", c.RoutesOut},
	} {
		if pair.name == "" {
			return newUsageError(fmt.Sprintf("generate: --%s must not be empty", pair.flag))
		}
		if prev, ok := seen[pair.name]; ok {
			return newUsageError(fmt.Sprintf("generate: --%s and --%s both name %q", prev, pair.flag, pair.name))
		}
		seen[pair.name] = pair.flag
	}

	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	// 1) Acquire the declaration unit. Acquisition is the only network
	// step; a failure here aborts the run before any output is written.
	unit, err := acquireUnit(ctx, cfg)
	if err != nil {
		var se *source.SourceError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("source: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			return newUsageError(msg)
		}
		return err
	}

	// 2) Run both passes over the immutable unit. Each builds new trees;
	// neither pass feeds the other.
	schemasUnit, rewritten, err := flatten.Flatten(unit)
	if err != nil {
		return fmt.Errorf("flatten schemas: %w", err)
	}
	entries, warnings, err := routes.Build(unit)
	if err != nil {
		return fmt.Errorf("build route table: %w", err)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	if cfg.Verbose {
		fmt.Fprintf(os.Stderr, "Flattened %d schema declarations, %d route entries\n",
			len(schemasUnit.Decls), len(entries))
	}

	// 3) Persist all artifacts, or fail loudly before exit.
	files := map[string][]byte{
		cfg.SchemaOut: append([]byte(generatedHeader), decl.Print(rewritten)...),
		cfg.TypesOut:  append([]byte(generatedHeader), decl.Print(schemasUnit)...),
		cfg.RoutesOut: append([]byte(generatedHeader), routes.Render(entries)...),
	}
	return writeOutputs(cfg.Out, files, cfg.Force, cfg.DryRun)
}

func acquireUnit(ctx context.Context, cfg *GenerateConfig) (*decl.Unit, error) {
	switch cfg.Mode {
	case ModeDecl:
		text, err := source.LoadText(ctx, cfg.Input)
		if err != nil {
			return nil, err
		}
		return decl.Parse(cfg.Input, text)
	default:
		doc, err := source.LoadDocument(ctx, cfg.Input)
		if err != nil {
			return nil, err
		}
		return convert.Document(cfg.Input, doc), nil
	}
}

// writeOutputs persists the artifacts atomically (temp file + rename). An
// existing file is only replaced under --force, except when the new content
// is byte-identical.
func writeOutputs(outDir string, files map[string][]byte, force, dryRun bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}

	rels := make([]string, 0, len(files))
	for rel := range files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	if dryRun {
		fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", abs, len(rels))
		for _, rel := range rels {
			fmt.Fprintf(os.Stdout, "- %s\n", rel)
		}
		return nil
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	for _, rel := range rels {
		p := filepath.Join(abs, rel)
		content := files[rel]
		if existing, rerr := os.ReadFile(p); rerr == nil {
			if string(existing) == string(content) {
				continue
			}
			if !force {
				return newUsageError(fmt.Sprintf("output file %q already exists (use --force to overwrite)", p))
			}
		}
		tmp := p + ".tmp"
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return fmt.Errorf("write temp %s: %w", rel, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("rename %s: %w", rel, err)
		}
	}
	return nil
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		switch normalized {
		case "input":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Input = str
		case "mode":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Mode = str
		case "out":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Out = str
		case "schemaout":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.SchemaOut = str
		case "typesout":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.TypesOut = str
		case "routesout":
			str, err := valueAsString(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.RoutesOut = str
		case "dryrun":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.DryRun = val
		case "force":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Force = val
		case "verbose":
			val, err := valueAsBool(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Verbose = val
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}
