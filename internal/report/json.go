package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/wasitest/internal/harness"
)

// Response is the JSON envelope of every document the command writes: the
// run report and command errors alike. Data is the payload on success and
// on test failures.
type Response[T any] struct {
	Status string `json:"status"`          // "ok" or "error"
	Data   T      `json:"data,omitempty"`  // payload
	Error  *Error `json:"error,omitempty"` // error details
}

// Error describes why a document is not ok.
type Error struct {
	Code    string `json:"code"`              // "E_TEST_FAILED", "E_COMMAND", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// ErrCodeTestFailed marks a run in which at least one case failed.
const ErrCodeTestFailed = "E_TEST_FAILED"

// JSON writes the whole summary as one indented document once the run has
// finished. Nothing is written per case, so the output is always a single
// valid document.
type JSON struct {
	w   io.Writer
	err error
}

// NewJSON creates a JSON reporter writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

func (j *JSON) CaseStarted(name, command string) {}

func (j *JSON) CaseFinished(r harness.CaseResult) {}

func (j *JSON) Finished(s *harness.Summary) {
	resp := Response[*harness.Summary]{Status: "ok", Data: s}
	if !s.Passed() {
		resp.Status = "error"
		resp.Error = &Error{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d/%d case(s) failed", s.Stats.Failed, s.Stats.TotalRun),
		}
	}

	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	j.err = enc.Encode(resp)
}

// Err returns the error from writing the document, if any.
func (j *JSON) Err() error {
	return j.err
}
