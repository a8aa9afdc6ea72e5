// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

// Supported report formats.
const (
	FormatJSON  = "json"
	FormatJUnit = "junit"
)

// Reporter defines the interface for writing a verify result to an output.
type Reporter interface {
	// Write records the result of a gate run.
	Write(result *verify.Result) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	switch format {
	case FormatJSON, FormatJUnit:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	if format == FormatJUnit {
		return NewJUnitReporter(writer, toolVersion), nil
	}
	return NewJSONReporter(writer, toolVersion), nil
}
