// Package params builds the per-job parameter document handed to the
// annotation pipeline. Building is pure: no I/O, no mutation after
// construction.
package params

import (
	gopath "path"
	"path/filepath"
	"strings"
)

// Config carries the batch-wide fields merged into every job's document.
type Config struct {
	// OutputPath is the remote base path annotation results land under
	OutputPath string

	// Workflow is the parsed custom workflow document, nil when the
	// pipeline's default workflow should run
	Workflow map[string]any

	// IndexingURL overrides the pipeline's indexing service ("" = unset)
	IndexingURL string

	// SkipIndexing disables post-annotation indexing
	SkipIndexing bool

	// Public marks the resulting annotation as publicly readable
	Public bool
}

// Document is the JSON parameter document for one job. Optional fields
// are omitted from the serialized form when unset; the pipeline treats
// absence, not false or null, as "not requested".
type Document struct {
	OutputPath   string         `json:"output_path"`
	GenbankFile  string         `json:"genbank_file"`
	OutputFile   string         `json:"output_file"`
	QueueNowait  bool           `json:"queue_nowait"`
	Workflow     map[string]any `json:"workflow,omitempty"`
	IndexingURL  string         `json:"indexing_url,omitempty"`
	SkipIndexing bool           `json:"skip_indexing,omitempty"`
	Public       bool           `json:"public,omitempty"`
}

// OutputID derives a job's output identifier from its local input path:
// the basename with its extension stripped ("/data/genome42.gb" →
// "genome42").
func OutputID(localPath string) string {
	base := filepath.Base(localPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Build derives the parameter document for one input file.
func Build(cfg Config, localPath string) Document {
	return Document{
		OutputPath:   cfg.OutputPath,
		GenbankFile:  gopath.Join(cfg.OutputPath, filepath.Base(localPath)),
		OutputFile:   OutputID(localPath),
		QueueNowait:  true,
		Workflow:     cfg.Workflow,
		IndexingURL:  cfg.IndexingURL,
		SkipIndexing: cfg.SkipIndexing,
		Public:       cfg.Public,
	}
}

// OutputArtifact returns the canonical remote path of the job's finished
// annotation: <output_path>/.<output_file>/<output_file>.genome.
func (d Document) OutputArtifact() string {
	return gopath.Join(d.OutputPath, "."+d.OutputFile, d.OutputFile+".genome")
}
