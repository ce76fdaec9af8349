package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// JobState tracks one in-flight job in the TUI
type JobState struct {
	ID        string
	Phase     string
	PhaseIcon string
	StartedAt time.Time
}

// Model is the bubbletea model for the TUI
type Model struct {
	// Configuration
	Parallelism int
	Styles      Styles

	// State
	TotalJobs  int
	ActiveJobs map[string]*JobState
	Completed  int
	Failed     int
	Skipped    int
	Rejected   int
	StartTime  time.Time
	Failures   []string
	FailLimit  int
	Width      int
	Height     int

	// Control
	Quitting bool
	Done     bool
}

// NewModel creates a new TUI model. The job total accumulates from
// queue events as pre-flight admits inputs.
func NewModel(parallelism int) *Model {
	return &Model{
		Parallelism: parallelism,
		Styles:      DefaultStyles(),
		ActiveJobs:  make(map[string]*JobState),
		StartTime:   time.Now(),
		FailLimit:   5,
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return tickCmd()
}

// TickMsg is sent every second to update the timer
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// DoneMsg signals the TUI should exit
type DoneMsg struct{}

// QuitMsg signals the user requested quit (q or Ctrl+C)
type QuitMsg struct{}

// JobQueuedMsg indicates an input passed pre-flight and was scheduled
type JobQueuedMsg struct {
	JobID string
}

// JobPhaseMsg indicates a job lifecycle phase change
type JobPhaseMsg struct {
	JobID     string
	Phase     string
	PhaseIcon string
}

// JobCompletedMsg indicates a job finished successfully
type JobCompletedMsg struct {
	JobID   string
	Seconds float64
}

// JobFailedMsg indicates a job failed
type JobFailedMsg struct {
	JobID string
	Error string
}

// JobSkippedMsg indicates a rerun found the job already complete
type JobSkippedMsg struct {
	JobID string
}

// InputRejectedMsg indicates an input failed pre-flight checks
type InputRejectedMsg struct {
	Path   string
	Reason string
}
