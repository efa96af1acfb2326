package implicit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// DefaultTraceFile is where the runtime tracer writes its call log.
const DefaultTraceFile = ".husk_trace"

const traceSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["calls"],
  "properties": {
    "calls": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["file", "function", "line"],
        "properties": {
          "file": {"type": "string"},
          "function": {"type": "string"},
          "line": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

type traceDocument struct {
	Calls []traceCall `json:"calls"`
}

type traceCall struct {
	File     string `json:"file"`
	Function string `json:"function"`
	Line     int    `json:"line"`
}

// LoadTrace ingests an execution call-trace document. A missing file is not
// an error, it just disables this evidence source. Returns whether any calls
// were loaded.
func (t *Tracker) LoadTrace(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read trace file: %w", err)
	}

	if err := validateTrace(data); err != nil {
		return false, fmt.Errorf("invalid trace document: %w", err)
	}

	var doc traceDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to decode trace document: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, call := range doc.Calls {
		base := filepath.Base(call.File)
		funcs, ok := t.tracedByFile[base]
		if !ok {
			funcs = make(map[string][]int)
			t.tracedByFile[base] = funcs
		}
		funcs[call.Function] = append(funcs[call.Function], call.Line)
	}
	return len(doc.Calls) > 0, nil
}

func validateTrace(data []byte) error {
	compiler := jsonschema.NewCompiler()
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(traceSchema))
	if err != nil {
		return err
	}
	if err := compiler.AddResource("trace.json", schemaDoc); err != nil {
		return err
	}
	schema, err := compiler.Compile("trace.json")
	if err != nil {
		return err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return schema.Validate(instance)
}
