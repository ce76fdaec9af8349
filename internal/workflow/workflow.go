// Package workflow loads and validates custom annotation workflow
// documents. A workflow overrides the pipeline's default stage list, so a
// malformed one must fail the batch before any job runs.
package workflow

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/RevCBH/gannet/internal/store"
)

//go:embed workflow_schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("workflow_schema.json", schemaJSON)

// RemotePrefix marks a workflow reference living in the remote store
// instead of the local filesystem ("ws:/templates/custom.json").
const RemotePrefix = "ws:"

// Document is a validated workflow: the original text plus its parsed
// form, ready to embed in a job parameter document.
type Document struct {
	// Raw is the document text exactly as read
	Raw string

	// Parsed holds canonical JSON types (the yaml package also accepts
	// plain JSON, so both input formats land here)
	Parsed map[string]any
}

// Resolve loads a workflow document from a local path, or from the remote
// store when ref carries the "ws:" prefix.
func Resolve(ctx context.Context, st store.Store, ref string) (Document, error) {
	if remote, ok := strings.CutPrefix(ref, RemotePrefix); ok {
		text, err := st.DownloadString(ctx, remote)
		if err != nil {
			return Document{}, fmt.Errorf("fetch workflow %s: %w", ref, err)
		}
		return Parse([]byte(text))
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return Document{}, fmt.Errorf("read workflow %s: %w", ref, err)
	}
	return Parse(data)
}

// Parse validates workflow text (YAML or JSON) against the embedded
// schema: an object holding a list of stage definitions.
func Parse(data []byte) (Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("parse workflow: %w", err)
	}

	// Round-trip through encoding/json so the validator sees canonical
	// JSON types regardless of the input format.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return Document{}, fmt.Errorf("parse workflow: %w", err)
	}
	var canonical any
	if err := json.Unmarshal(jsonData, &canonical); err != nil {
		return Document{}, fmt.Errorf("parse workflow: %w", err)
	}

	if err := schema.Validate(canonical); err != nil {
		return Document{}, fmt.Errorf("invalid workflow: %w", err)
	}

	parsed, ok := canonical.(map[string]any)
	if !ok {
		return Document{}, fmt.Errorf("invalid workflow: document is not an object")
	}

	return Document{Raw: string(data), Parsed: parsed}, nil
}
