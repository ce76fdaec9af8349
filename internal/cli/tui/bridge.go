package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/gannet/internal/events"
)

// Bridge connects the event bus to the bubbletea program
type Bridge struct {
	program *tea.Program
}

// NewBridge creates a new bridge for the given program
func NewBridge(program *tea.Program) *Bridge {
	return &Bridge{
		program: program,
	}
}

// Handler returns an event handler function for the event bus
func (b *Bridge) Handler() events.Handler {
	return func(evt events.Event) {
		msg := b.eventToMsg(evt)
		if msg != nil {
			b.program.Send(msg)
		}
	}
}

// eventToMsg converts an events.Event to a tea.Msg
func (b *Bridge) eventToMsg(evt events.Event) tea.Msg {
	switch evt.Type {
	case events.JobQueued:
		return JobQueuedMsg{JobID: evt.Job}

	case events.JobUploadStarted:
		return JobPhaseMsg{
			JobID:     evt.Job,
			Phase:     "uploading input",
			PhaseIcon: IconUpload,
		}

	case events.JobUploaded:
		return JobPhaseMsg{
			JobID:     evt.Job,
			Phase:     "waiting for pipeline",
			PhaseIcon: IconWaiting,
		}

	case events.JobStarted:
		return JobPhaseMsg{
			JobID:     evt.Job,
			Phase:     "annotating",
			PhaseIcon: IconAnnotate,
		}

	case events.JobCompleted:
		seconds := 0.0
		if payload, ok := evt.Payload.(map[string]any); ok {
			if s, ok := payload["elapsed_seconds"].(float64); ok {
				seconds = s
			}
		}
		return JobCompletedMsg{
			JobID:   evt.Job,
			Seconds: seconds,
		}

	case events.JobFailed:
		return JobFailedMsg{
			JobID: evt.Job,
			Error: evt.Error,
		}

	case events.JobSkipped:
		return JobSkippedMsg{
			JobID: evt.Job,
		}

	case events.InputRejected:
		return InputRejectedMsg{
			Path:   evt.Job,
			Reason: evt.Error,
		}

	default:
		return nil
	}
}

// SendDone sends a DoneMsg to the program
func (b *Bridge) SendDone() {
	b.program.Send(DoneMsg{})
}

// SendQuit sends a QuitMsg to the program
func (b *Bridge) SendQuit() {
	b.program.Send(QuitMsg{})
}
