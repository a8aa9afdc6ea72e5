package reporting

import (
	"fmt"
	"io"

	json "github.com/json-iterator/go"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

// jsonReport is the document written by JSONReporter.
type jsonReport struct {
	Tool        string         `json:"tool"`
	ToolVersion string         `json:"tool_version"`
	Result      *verify.Result `json:"result"`
}

// JSONReporter writes the result as a single indented JSON document on Close.
type JSONReporter struct {
	writer      io.WriteCloser
	toolVersion string
	result      *verify.Result
}

// NewJSONReporter takes ownership of writer.
func NewJSONReporter(writer io.WriteCloser, toolVersion string) *JSONReporter {
	return &JSONReporter{writer: writer, toolVersion: toolVersion}
}

// Write keeps the latest result; a run produces exactly one.
func (r *JSONReporter) Write(result *verify.Result) error {
	if result == nil {
		return fmt.Errorf("cannot report a nil result")
	}
	r.result = result
	return nil
}

// Close encodes the report and closes the writer.
func (r *JSONReporter) Close() error {
	defer r.writer.Close()
	if r.result == nil {
		return nil
	}

	data, err := json.MarshalIndent(jsonReport{
		Tool:        ToolName,
		ToolVersion: r.toolVersion,
		Result:      r.result,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal json report: %w", err)
	}
	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write json report: %w", err)
	}
	return nil
}
