package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sofmeright/packwright/src/batch"
)

// ReportDir is where CI artifacts are written, relative to the working directory.
const ReportDir = ".packwright/reports"

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true"
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

func IsGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// Collapsible section helpers. GitLab and GitHub Actions use different
// markers; other runners get nothing.

func SectionStart(w io.Writer, id, name string) {
	switch {
	case IsGitLabCI():
		fmt.Fprintf(w, "\033[0Ksection_start:%d:%s[collapsed=true]\r\033[0K%s\n", time.Now().Unix(), id, name)
	case IsGitHubActions():
		fmt.Fprintf(w, "::group::%s\n", name)
	}
}

func SectionEnd(w io.Writer, id string) {
	switch {
	case IsGitLabCI():
		fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", time.Now().Unix(), id)
	case IsGitHubActions():
		fmt.Fprintln(w, "::endgroup::")
	}
}

// JUnit XML types for CI test reporting.

type JUnitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// BatchJUnit converts a batch result into a JUnit document. Each input is a
// test case; failed builds carry their error kind and captured log.
func BatchJUnit(r *batch.Result) JUnitTestSuites {
	suite := JUnitTestSuite{
		Name: "packwright/batch",
		Time: seconds(r.Duration),
	}
	for _, path := range r.Order {
		res := r.Results[path]
		if res == nil {
			continue
		}
		tc := JUnitTestCase{
			Name:      path,
			Classname: "packwright.build." + string(res.Format),
			Time:      seconds(res.Duration),
		}
		if !res.Success {
			body := res.Error
			if res.Log != "" {
				body += "\n\n" + res.Log
			}
			tc.Failure = &JUnitFailure{
				Message: firstLine(res.Error),
				Type:    res.Kind.String(),
				Body:    body,
			}
			suite.Failures++
		}
		suite.Cases = append(suite.Cases, tc)
		suite.Tests++
	}
	return JUnitTestSuites{
		Name:     "packwright",
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Time:     suite.Time,
		Suites:   []JUnitTestSuite{suite},
	}
}

// WriteBatchJUnit writes r as dir/batch.xml and returns the file path.
func WriteBatchJUnit(dir string, r *batch.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	path := filepath.Join(dir, "batch.xml")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(xml.Header); err != nil {
		return "", err
	}
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(BatchJUnit(r)); err != nil {
		return "", fmt.Errorf("encoding junit xml: %w", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return "", err
	}
	return path, nil
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// CIHeader prints a compact pipeline context block at the start of a CI run.
func CIHeader(w io.Writer) {
	if !IsCI() {
		return
	}
	var parts []string
	add := func(key string, envs ...string) {
		for _, e := range envs {
			if v := os.Getenv(e); v != "" {
				parts = append(parts, key+"="+v)
				return
			}
		}
	}
	add("ref", "CI_COMMIT_TAG", "CI_COMMIT_REF_NAME", "GITHUB_REF_NAME")
	if sha := os.Getenv("CI_COMMIT_SHORT_SHA"); sha != "" {
		parts = append(parts, "sha="+sha)
	} else if sha := firstNonEmpty(os.Getenv("CI_COMMIT_SHA"), os.Getenv("GITHUB_SHA")); len(sha) >= 8 {
		parts = append(parts, "sha="+sha[:8])
	}
	add("pipeline", "CI_PIPELINE_ID", "GITHUB_RUN_ID")
	add("runner", "CI_RUNNER_DESCRIPTION", "RUNNER_NAME")
	if len(parts) > 0 {
		fmt.Fprintf(w, "  ci: %s\n", strings.Join(parts, "  "))
	}
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
