package structure

import (
	"fmt"
	"math"
	"strings"
)

// Report is the outcome of a structure or entry-point validation.
type Report struct {
	Valid           bool
	Errors          []string
	Warnings        []string
	Recommendations []string
	Score           int
	Passed          int
	Total           int
}

func newReport() *Report {
	return &Report{Valid: true}
}

func (r *Report) pass() {
	r.Passed++
	r.Total++
}

func (r *Report) fail(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
	r.Total++
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	r.Total++
}

func (r *Report) recommend(msg string) {
	r.Recommendations = append(r.Recommendations, msg)
	r.Total++
}

// merge folds a sub-report's checks and messages into r.
func (r *Report) merge(o *Report) {
	r.Valid = r.Valid && o.Valid
	r.Passed += o.Passed
	r.Total += o.Total
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
	r.Recommendations = append(r.Recommendations, o.Recommendations...)
}

func (r *Report) finish() {
	r.Score = score(r.Passed, r.Total)
}

// score is round(100 * passed / total), 0 for an empty checklist.
func score(passed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(passed) / float64(total)))
}

// Text renders the report for build logs and terminals without color.
func (r *Report) Text() string {
	var b strings.Builder
	status := "VALID"
	if !r.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Score: %d/100 (%d of %d checks passed)\n", r.Score, r.Passed, r.Total)
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, it := range items {
			fmt.Fprintf(&b, "  - %s\n", it)
		}
	}
	section("Errors", r.Errors)
	section("Warnings", r.Warnings)
	section("Recommendations", r.Recommendations)
	return b.String()
}
