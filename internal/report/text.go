// Package report renders harness runs for people (Text) and for machines
// (JSON).
package report

import (
	"fmt"
	"io"

	"github.com/roach88/wasitest/internal/harness"
)

const banner = "======================="

// TextOptions configures a Text reporter.
type TextOptions struct {
	// Color wraps FAIL markers and the final banner in ANSI colors.
	Color bool

	// ShowSkipped prints a block for skipped cases too.
	ShowSkipped bool
}

// Text streams a human-readable report:
//
//	=== Hello World ===
//	../build/wasm3 ./wasi/test.wasm hello
//
//	=== Simple WASI test ===
//	../build/wasm3 ./wasi/simple/test.wasm cat /dev/stdin
//	FAIL: Crashed
//
//	total_run=2 failed=1 crashed=1 timeout=0 skipped=0
//	=======================
//	 FAILED: 1/2
//	=======================
type Text struct {
	w           io.Writer
	colors      palette
	showSkipped bool
}

// NewText creates a Text reporter writing to w.
func NewText(w io.Writer, opts TextOptions) *Text {
	return &Text{w: w, colors: palette{enabled: opts.Color}, showSkipped: opts.ShowSkipped}
}

func (t *Text) CaseStarted(name, command string) {
	fmt.Fprintf(t.w, "=== %s ===\n", name)
	fmt.Fprintln(t.w, command)
}

func (t *Text) CaseFinished(r harness.CaseResult) {
	switch r.Status {
	case harness.StatusSkipped:
		if !t.showSkipped {
			return
		}
		fmt.Fprintf(t.w, "=== %s ===\n", r.Name)
		if r.Reason != "" {
			fmt.Fprintf(t.w, "SKIP: %s\n", r.Reason)
		} else {
			fmt.Fprintln(t.w, "SKIP")
		}
	case harness.StatusFailed:
		fmt.Fprintf(t.w, "%s %s\n", t.colors.red("FAIL:"), r.Reason)
	}
	fmt.Fprintln(t.w)
}

func (t *Text) Finished(s *harness.Summary) {
	st := s.Stats
	fmt.Fprintf(t.w, "total_run=%d failed=%d crashed=%d timeout=%d skipped=%d\n",
		st.TotalRun, st.Failed, st.Crashed, st.Timeout, st.Skipped)

	if st.Failed > 0 {
		fmt.Fprintln(t.w, t.colors.red(fmt.Sprintf("%s\n FAILED: %d/%d\n%s", banner, st.Failed, st.TotalRun, banner)))
		return
	}
	fmt.Fprintln(t.w, t.colors.green(fmt.Sprintf("%s\n All %d tests OK\n%s", banner, st.TotalRun, banner)))
}
