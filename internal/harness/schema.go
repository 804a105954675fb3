package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

const scenarioFilename = "scenario.yaml"

// SchemaError lists every schema violation found in a scenario.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	return "schema: " + strings.Join(e.Issues, "; ")
}

// ValidateSchema checks scenario YAML against the embedded #Scenario
// definition. Unknown fields, wrong types and out-of-range values are
// reported together.
func ValidateSchema(data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))

	file, err := cueyaml.Extract(scenarioFilename, data)
	if err != nil {
		return schemaError(err)
	}

	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return schemaError(err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return schemaError(err)
	}
	return nil
}

// schemaError flattens CUE errors, prefixing scenario line numbers
// where CUE reports them.
func schemaError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Issues: []string{err.Error()}}
	}

	issues := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Error()
		for _, pos := range errors.Positions(e) {
			if pos.Filename() == scenarioFilename {
				msg = fmt.Sprintf("line %d: %s", pos.Line(), msg)
				break
			}
		}
		issues = append(issues, msg)
	}
	return &SchemaError{Issues: issues}
}
