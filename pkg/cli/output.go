package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat selects how results are printed.
type OutputFormat string

const (
	FormatYAML OutputFormat = "yaml"
	FormatJSON OutputFormat = "json"

	// FormatRaw writes strings and byte slices as-is and everything else
	// as YAML.
	FormatRaw OutputFormat = "raw"
)

// OutputOptions configures Output.
type OutputOptions struct {
	// Format defaults to YAML.
	Format OutputFormat

	// File receives the output instead of stdout when set.
	File string

	// Writer overrides both File and stdout.
	Writer io.Writer
}

// Output prints result.
func Output(result any, opts OutputOptions) (err error) {
	w := opts.Writer
	if w == nil && opts.File != "" {
		f, cerr := os.Create(opts.File)
		if cerr != nil {
			return fmt.Errorf("cli: create output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	if w == nil {
		w = os.Stdout
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatRaw:
		switch v := result.(type) {
		case []byte:
			_, err = w.Write(v)
			return err
		case string:
			_, err = io.WriteString(w, v)
			return err
		}
		fallthrough
	case FormatYAML, "":
		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("cli: encode output: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("cli: unsupported output format %q", opts.Format)
}

// WriteFile writes binary output to path.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("cli: an output file (-o) is required for binary data")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cli: write output: %w", err)
	}
	return nil
}

// PrintSuccess prints a confirmation line to stdout.
func PrintSuccess(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error line to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// PrintInfo prints a status line to stderr so stdout stays pipeable.
func PrintInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ℹ "+format+"\n", args...)
}

// PrintWarning prints a warning line to stderr.
func PrintWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}
