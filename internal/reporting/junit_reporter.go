package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

// ToolName identifies the reports this tool writes.
const ToolName = "contrast-verify"

// JUnitReporter renders the gate as a JUnit test suite with a single test
// case, so CI systems without native support still show the verdict.
type JUnitReporter struct {
	writer      io.WriteCloser
	toolVersion string
	result      *verify.Result
}

// NewJUnitReporter takes ownership of writer.
func NewJUnitReporter(writer io.WriteCloser, toolVersion string) *JUnitReporter {
	return &JUnitReporter{writer: writer, toolVersion: toolVersion}
}

func (r *JUnitReporter) Write(result *verify.Result) error {
	if result == nil {
		return fmt.Errorf("cannot report a nil result")
	}
	r.result = result
	return nil
}

// Close builds the XML document and closes the writer.
func (r *JUnitReporter) Close() error {
	defer r.writer.Close()
	if r.result == nil {
		return nil
	}

	doc := BuildJUnit(r.result, r.toolVersion)
	doc.Indent(2)
	if _, err := doc.WriteTo(r.writer); err != nil {
		return fmt.Errorf("failed to write junit report: %w", err)
	}
	return nil
}

// BuildJUnit converts a result into a JUnit XML document.
func BuildJUnit(result *verify.Result, toolVersion string) *etree.Document {
	failures := "0"
	if !result.Passed() {
		failures = "1"
	}
	seconds := strconv.FormatFloat(result.Duration.Seconds(), 'f', 3, 64)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", ToolName)
	suites.CreateAttr("tests", "1")
	suites.CreateAttr("failures", failures)

	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", ToolName)
	suite.CreateAttr("tests", "1")
	suite.CreateAttr("failures", failures)
	suite.CreateAttr("errors", "0")
	suite.CreateAttr("time", seconds)
	if !result.StartedAt.IsZero() {
		suite.CreateAttr("timestamp", result.StartedAt.UTC().Format("2006-01-02T15:04:05"))
	}

	props := suite.CreateElement("properties")
	addProperty(props, "tool_version", toolVersion)
	addProperty(props, "run_id", result.RunID)
	addProperty(props, "app_id", result.AppID)
	addProperty(props, "build_number", result.BuildNumber)
	addProperty(props, "source", string(result.Source))
	if result.VulnerabilityCount != nil {
		addProperty(props, "vulnerability_count", strconv.Itoa(*result.VulnerabilityCount))
		addProperty(props, "threshold", strconv.Itoa(result.Threshold))
	}
	addProperty(props, "policy_name", result.PolicyName)

	testCase := suite.CreateElement("testcase")
	testCase.CreateAttr("classname", ToolName+"."+string(result.Source))
	testCase.CreateAttr("name", testCaseName(result))
	testCase.CreateAttr("time", seconds)

	if result.Passed() {
		testCase.CreateElement("system-out").SetText(result.Message)
	} else {
		failure := testCase.CreateElement("failure")
		failure.CreateAttr("message", result.Message)
		failure.CreateAttr("type", string(result.Source))
		failure.SetText(result.Message)
	}
	return doc
}

func addProperty(props *etree.Element, name, value string) {
	if value == "" {
		return
	}
	p := props.CreateElement("property")
	p.CreateAttr("name", name)
	p.CreateAttr("value", value)
}

func testCaseName(result *verify.Result) string {
	app := result.AppName
	if app == "" {
		app = result.AppID
	}
	if result.BuildNumber != "" {
		return fmt.Sprintf("verify %s build %s", app, result.BuildNumber)
	}
	return "verify " + app
}
