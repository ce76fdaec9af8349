package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RevCBH/gannet/internal/events"
	"github.com/RevCBH/gannet/internal/store"
	"github.com/RevCBH/gannet/internal/telemetry"
)

// genbankContentType marks uploaded inputs as raw contig data for the
// annotation service.
const genbankContentType = "contigs"

// UploadError reports a failed attempt to place one genome in the store
type UploadError struct {
	LocalPath  string
	RemotePath string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s -> %s: %v", e.LocalPath, e.RemotePath, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ensureUploaded places the job's input at its canonical remote path
// unless a usable copy is already there. A transient stat failure is
// never mistaken for absence.
func (d *Dispatcher) ensureUploaded(ctx context.Context, jb job) error {
	remote := jb.doc.GenbankFile
	id := jb.doc.OutputFile

	info, err := d.store.Stat(ctx, remote)
	switch {
	case err == nil && info.Size > 0:
		return nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return &UploadError{LocalPath: jb.input, RemotePath: remote, Err: err}
	}

	d.bus.Emit(events.NewEvent(events.JobUploadStarted, id).WithPayload(map[string]any{
		"remote": remote,
	}))

	opts := store.SaveOptions{
		ContentType: genbankContentType,
		Metadata: map[string]string{
			"upload-time": time.Now().UTC().Format(time.RFC3339),
			"batch":       d.opts.BatchID,
		},
		Overwrite: d.opts.Overwrite,
	}
	if err := d.store.Save(ctx, jb.input, remote, opts); err != nil {
		// A concurrent run winning the upload race still leaves the
		// input in place, so losing it is not a failure.
		if errors.Is(err, store.ErrConflict) {
			if again, statErr := d.store.Stat(ctx, remote); statErr == nil && again.Size > 0 {
				d.bus.Emit(events.NewEvent(events.JobUploaded, id))
				return nil
			}
		}
		return &UploadError{LocalPath: jb.input, RemotePath: remote, Err: err}
	}

	telemetry.UploadsTotal.Inc()
	telemetry.UploadBytesTotal.Add(float64(jb.size))
	d.bus.Emit(events.NewEvent(events.JobUploaded, id).WithPayload(map[string]any{
		"remote": remote,
		"bytes":  jb.size,
	}))
	return nil
}
