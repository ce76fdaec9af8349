package dispatch

import (
	"context"

	"github.com/RevCBH/gannet/internal/params"
)

// isComplete reports whether the job's output artifact already exists
// with non-zero size. Any store failure counts as not complete: rerun is
// best-effort resumption and must never block a job from running.
func (d *Dispatcher) isComplete(ctx context.Context, doc params.Document) bool {
	info, err := d.store.Stat(ctx, doc.OutputArtifact())
	return err == nil && info.Size > 0
}
