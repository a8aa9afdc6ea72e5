// internal/reporting/reporter_test.go
package reporting_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/reporting"
	"github.com/Contrast-Security-OSS/integration-verify-github-action/internal/verify"
)

const testToolVersion = "v1.0.0-test"

func intPtr(i int) *int { return &i }

func thresholdFailure() *verify.Result {
	return &verify.Result{
		RunID:              "6a2f41a3-c54c-fce8-32d2-0324e1c32e22",
		Verdict:            verify.VerdictFail,
		Source:             verify.SourceThreshold,
		Message:            "The vulnerability count is 4 - Contrast verify gate fails as this is above threshold (threshold allows 3)",
		AppID:              "app-uuid",
		AppName:            "VerifierTest",
		BuildNumber:        "build-123",
		VulnerabilityCount: intPtr(4),
		Threshold:          3,
		Severities:         []string{"CRITICAL", "HIGH"},
		StartedAt:          time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Duration:           1500 * time.Millisecond,
	}
}

func policyPass() *verify.Result {
	return &verify.Result{
		Verdict:    verify.VerdictPass,
		Source:     verify.SourcePolicy,
		Message:    "Step passes matching policy",
		AppID:      "app-uuid",
		PolicyName: "Lenient",
	}
}

// -- Factory --

func TestNew_Stdout(t *testing.T) {
	for _, format := range []string{reporting.FormatJSON, reporting.FormatJUnit} {
		r, err := reporting.New(format, "stdout", testToolVersion)
		require.NoError(t, err)
		assert.NoError(t, r.Close())

		r, err = reporting.New(format, "", testToolVersion)
		require.NoError(t, err)
		assert.NoError(t, r.Close())
	}
}

func TestNew_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.sarif")
	r, err := reporting.New("sarif", path, testToolVersion)
	assert.Nil(t, r)
	assert.EqualError(t, err, "unsupported output format: sarif")
	assert.NoFileExists(t, path, "no file should be created for an unknown format")
}

func TestNew_BadPath(t *testing.T) {
	_, err := reporting.New(reporting.FormatJSON, filepath.Join(t.TempDir(), "missing", "report.json"), testToolVersion)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestWrite_NilResult(t *testing.T) {
	r, err := reporting.New(reporting.FormatJSON, filepath.Join(t.TempDir(), "r.json"), testToolVersion)
	require.NoError(t, err)
	assert.Error(t, r.Write(nil))
	assert.NoError(t, r.Close())
}

// -- JSON --

func TestJSONReporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r, err := reporting.New(reporting.FormatJSON, path, testToolVersion)
	require.NoError(t, err)
	require.NoError(t, r.Write(thresholdFailure()))
	require.NoError(t, r.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &doc))
	assert.Equal(t, "contrast-verify", doc["tool"])
	assert.Equal(t, testToolVersion, doc["tool_version"])

	result := doc["result"].(map[string]interface{})
	assert.Equal(t, "fail", result["verdict"])
	assert.Equal(t, "threshold", result["source"])
	assert.Equal(t, float64(4), result["vulnerability_count"])
	assert.Equal(t, float64(3), result["threshold"])
	assert.Equal(t, "build-123", result["build_number"])
	assert.NotContains(t, result, "policy_name")
}

func TestJSONReporter_NothingWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r, err := reporting.New(reporting.FormatJSON, path, testToolVersion)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, content)
}

// -- JUnit --

func TestJUnitReporter_Failure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	r, err := reporting.New(reporting.FormatJUnit, path, testToolVersion)
	require.NoError(t, err)
	require.NoError(t, r.Write(thresholdFailure()))
	require.NoError(t, r.Close())

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromFile(path))

	suite := doc.FindElement("/testsuites/testsuite")
	require.NotNil(t, suite)
	assert.Equal(t, "1", suite.SelectAttrValue("tests", ""))
	assert.Equal(t, "1", suite.SelectAttrValue("failures", ""))
	assert.Equal(t, "1.500", suite.SelectAttrValue("time", ""))
	assert.Equal(t, "2024-05-06T07:08:09", suite.SelectAttrValue("timestamp", ""))

	count := suite.FindElement("properties/property[@name='vulnerability_count']")
	require.NotNil(t, count)
	assert.Equal(t, "4", count.SelectAttrValue("value", ""))

	testCase := suite.FindElement("testcase")
	require.NotNil(t, testCase)
	assert.Equal(t, "contrast-verify.threshold", testCase.SelectAttrValue("classname", ""))
	assert.Equal(t, "verify VerifierTest build build-123", testCase.SelectAttrValue("name", ""))

	failure := testCase.FindElement("failure")
	require.NotNil(t, failure)
	assert.Equal(t, "threshold", failure.SelectAttrValue("type", ""))
	assert.Equal(t, thresholdFailure().Message, failure.Text())
}

func TestBuildJUnit_Pass(t *testing.T) {
	doc := reporting.BuildJUnit(policyPass(), testToolVersion)

	suite := doc.FindElement("/testsuites/testsuite")
	require.NotNil(t, suite)
	assert.Equal(t, "0", suite.SelectAttrValue("failures", ""))
	assert.Nil(t, suite.SelectAttr("timestamp"))
	assert.Nil(t, doc.FindElement("//failure"))
	assert.Nil(t, doc.FindElement("//property[@name='vulnerability_count']"))

	testCase := suite.FindElement("testcase")
	assert.Equal(t, "verify app-uuid", testCase.SelectAttrValue("name", ""))
	assert.Equal(t, "Step passes matching policy", testCase.FindElement("system-out").Text())
}
