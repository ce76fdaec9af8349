package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case TickMsg:
		// Continue ticking for timer updates
		return m, tickCmd()

	case DoneMsg:
		m.Done = true
		return m, tea.Quit

	case QuitMsg:
		m.Quitting = true
		return m, tea.Quit

	case JobQueuedMsg:
		m.TotalJobs++

	case JobPhaseMsg:
		job, ok := m.ActiveJobs[msg.JobID]
		if !ok {
			job = &JobState{ID: msg.JobID, StartedAt: time.Now()}
			m.ActiveJobs[msg.JobID] = job
		}
		job.Phase = msg.Phase
		job.PhaseIcon = msg.PhaseIcon

	case JobCompletedMsg:
		delete(m.ActiveJobs, msg.JobID)
		m.Completed++

	case JobFailedMsg:
		delete(m.ActiveJobs, msg.JobID)
		m.Failed++
		m.recordFailure(msg.JobID + ": " + msg.Error)

	case JobSkippedMsg:
		m.Skipped++

	case InputRejectedMsg:
		m.Rejected++
		m.recordFailure(msg.Path + ": " + msg.Reason)
	}

	return m, nil
}

// recordFailure keeps a short tail of failure lines for the view
func (m *Model) recordFailure(line string) {
	m.Failures = append(m.Failures, line)
	if m.FailLimit > 0 && len(m.Failures) > m.FailLimit {
		m.Failures = m.Failures[len(m.Failures)-m.FailLimit:]
	}
}
