package record

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schemas/*.cue
var schemaFS embed.FS

// Issue is a schema problem found in a stored record. Issues are advisory:
// scoring and metrics still run on records that have them.
type Issue struct {
	File    string `json:"file,omitempty"`
	Index   int    `json:"index"`
	Record  string `json:"record"`
	Message string `json:"message"`
}

// Validator checks raw records against the embedded CUE schema.
type Validator struct {
	ctx    *cue.Context
	record cue.Value
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	content, err := schemaFS.ReadFile("schemas/record.cue")
	if err != nil {
		return nil, fmt.Errorf("error reading record schema: %w", err)
	}

	ctx := cuecontext.New()
	inst := ctx.CompileBytes(content, cue.Filename("record.cue"))
	if err := inst.Err(); err != nil {
		return nil, fmt.Errorf("error compiling record schema: %w", err)
	}

	def := inst.LookupPath(cue.ParsePath("#Record"))
	if !def.Exists() {
		return nil, fmt.Errorf("record schema has no #Record definition")
	}

	return &Validator{ctx: ctx, record: def}, nil
}

// ValidateData checks one decoded JSON object.
func (v *Validator) ValidateData(data map[string]any) []string {
	value := v.ctx.Encode(data)
	if err := value.Err(); err != nil {
		return []string{fmt.Sprintf("error encoding record: %v", err)}
	}

	unified := v.record.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return messages(err)
	}
	return nil
}

// ValidateDocument checks every record in a JSON or YAML document.
func (v *Validator) ValidateDocument(data []byte, ext string) ([]Issue, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing document: %w", err)
	}

	var objects []any
	switch x := doc.(type) {
	case []any:
		objects = x
	default:
		objects = []any{x}
	}

	var issues []Issue
	for i, obj := range objects {
		m, ok := obj.(map[string]any)
		if !ok {
			issues = append(issues, Issue{Index: i, Message: "record is not an object"})
			continue
		}
		label := describe(m)
		for _, msg := range v.ValidateData(m) {
			issues = append(issues, Issue{Index: i, Record: label, Message: msg})
		}
	}
	return issues, nil
}

func describe(m map[string]any) string {
	if id, ok := m["id"].(string); ok && id != "" {
		return id
	}
	site, _ := m["nombreEspacio"].(string)
	date, _ := m["fechaVisita"].(string)
	if site == "" && date == "" {
		return "unnamed record"
	}
	return strings.TrimSpace(site + " " + date)
}

func messages(err error) []string {
	var out []string
	for _, e := range cueerrors.Errors(err) {
		out = append(out, strings.TrimSpace(e.Error()))
	}
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
