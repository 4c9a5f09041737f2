package suite

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// suiteSchema constrains CUE suite files. The definitions are closed, so an
// unknown field in a case is a unification error rather than being ignored.
const suiteSchema = `
#Case: {
	name:            string & !=""
	wasm:            string & !=""
	args?:           [...string]
	stdin?:          string
	skip?:           bool
	skip_reason?:    string
	requires?:       [...string]
	expect_pattern?: string
	expect_sha1?:    =~"^[0-9a-fA-F]{40}$"
}

#Suite: {
	name?: string
	cases: [...#Case]
}
`

// decodeCUE compiles a CUE suite, unifies it with the schema and decodes
// the concrete result. CUE values decode through their json tags.
func decodeCUE(data []byte, filename string) (*rawSuite, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(suiteSchema, cue.Filename("suite-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling suite schema: %w", err)
	}

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, fmt.Errorf("compiling CUE: %s", formatCUEError(err))
	}

	v := schema.LookupPath(cue.ParsePath("#Suite")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating CUE: %s", formatCUEError(err))
	}

	var raw rawSuite
	if err := v.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding CUE: %s", formatCUEError(err))
	}
	return &raw, nil
}

// formatCUEError flattens a CUE error list into one line per error, each
// prefixed with its position when CUE knows it.
func formatCUEError(err error) string {
	list := errors.Errors(err)
	if len(list) == 0 {
		return err.Error()
	}
	msg := ""
	for i, e := range list {
		if i > 0 {
			msg += "; "
		}
		if pos := e.Position(); pos.IsValid() {
			msg += fmt.Sprintf("%s:%d:%d: ", pos.Filename(), pos.Line(), pos.Column())
		}
		format, args := e.Msg()
		msg += fmt.Sprintf(format, args...)
	}
	return msg
}
