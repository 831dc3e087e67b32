package inputvalidation

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

// ValidationInfo records the declared constraints of the field a finding
// was made on.
type ValidationInfo struct {
	InputType      string `json:"inputType"`
	HasPattern     bool   `json:"hasPattern"`
	HasLengthLimit bool   `json:"hasLengthLimit"`
}

// Finding is a recorded belief that a field is vulnerable to a category.
type Finding struct {
	Type           string         `json:"type"`
	Category       Category       `json:"category"`
	Description    string         `json:"description"`
	Payload        string         `json:"payload"`
	AdditionalInfo string         `json:"additionalInfo,omitempty"`
	ValidationInfo ValidationInfo `json:"validationInfo"`
}

// ProbeRecord is the trace of one probe, kept when Options.KeepProbes is set.
type ProbeRecord struct {
	Payload string  `json:"payload"`
	Outcome Outcome `json:"outcome"`
	Verdict Verdict `json:"verdict"`
	Error   string  `json:"error,omitempty"`
}

// FieldResult is the terminal state of one enumerated field.
type FieldResult struct {
	FieldName       string        `json:"fieldName"`
	FieldType       string        `json:"fieldType"`
	Vulnerabilities []Finding     `json:"vulnerabilities"`
	IsSafe          bool          `json:"isSafe"`
	Fingerprint     string        `json:"fingerprint,omitempty"`
	Failures        []string      `json:"failures,omitempty"`
	Probes          []ProbeRecord `json:"probes,omitempty"`
}

// Progress is the state reported after every completed probe.
type Progress struct {
	Completed    int     `json:"completed"`
	Total        int     `json:"total"`
	Percent      float64 `json:"progress"`
	CurrentField string  `json:"currentField"`
}

// NewProgress computes the percentage of completed out of total.
func NewProgress(completed, total int, field string) Progress {
	p := Progress{Completed: completed, Total: total, CurrentField: field}
	if total > 0 {
		p.Percent = float64(completed) / float64(total) * 100
	}
	return p
}

// Summary holds the derived counts of a run.
type Summary struct {
	TotalFields      int `json:"totalFields"`
	VulnerableFields int `json:"vulnerableFields"`
	SafeFields       int `json:"safeFields"`
	TotalFindings    int `json:"totalFindings"`
	FailedProbes     int `json:"failedProbes"`
}

// TestRun is one complete pass over a page.
type TestRun struct {
	ID              string        `json:"id"`
	URL             string        `json:"url"`
	CatalogVersion  string        `json:"catalogVersion"`
	Categories      []Category    `json:"categories"`
	StartedAt       time.Time     `json:"startedAt"`
	FinishedAt      time.Time     `json:"finishedAt"`
	TotalFields     int           `json:"totalFields"`
	CompletedProbes int           `json:"completedProbes"`
	TotalProbes     int           `json:"totalProbes"`
	Results         []FieldResult `json:"results"`
	Summary         Summary       `json:"summary"`
}

// Summarize recomputes the summary counts from the results.
func (r *TestRun) Summarize() Summary {
	s := Summary{TotalFields: len(r.Results)}
	for _, f := range r.Results {
		if f.IsSafe {
			s.SafeFields++
		} else {
			s.VulnerableFields++
		}
		s.TotalFindings += len(f.Vulnerabilities)
		s.FailedProbes += len(f.Failures)
	}
	r.Summary = s
	return s
}

// VulnerableResults returns the fields with at least one finding.
func (r *TestRun) VulnerableResults() []FieldResult {
	var out []FieldResult
	for _, f := range r.Results {
		if !f.IsSafe {
			out = append(out, f)
		}
	}
	return out
}

// SafeResults returns the fields without findings.
func (r *TestRun) SafeResults() []FieldResult {
	var out []FieldResult
	for _, f := range r.Results {
		if f.IsSafe {
			out = append(out, f)
		}
	}
	return out
}

// Duration is how long the run took.
func (r *TestRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// fingerprint identifies a field across runs of the same page.
func fingerprint(el FieldElement) string {
	h := murmur3.New64()
	fmt.Fprintf(h, "%d\x00%s\x00%s\x00%s\x00%s",
		el.Index, strings.ToLower(el.Tag), el.Name, el.ID, el.DisplayType())
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h.Sum64())
	return hex.EncodeToString(buf[:])
}

// uniqueNames gives every field a distinct display name. Later fields whose
// name was already taken are suffixed with their position, then with a
// counter if that is taken too (PHP-style names like items[2] are common).
func uniqueNames(fields []FieldElement) []string {
	names := make([]string, len(fields))
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		name := f.DisplayName()
		if seen[name] {
			base := name
			name = fmt.Sprintf("%s[%d]", base, f.Index)
			for n := 2; seen[name]; n++ {
				name = fmt.Sprintf("%s[%d]#%d", base, f.Index, n)
			}
		}
		seen[name] = true
		names[i] = name
	}
	return names
}
