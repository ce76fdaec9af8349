package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// View implements tea.Model
func (m *Model) View() string {
	if m.Done || m.Quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderActiveJobs())
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(m.renderFailures())
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the title line with timer and worker count
func (m *Model) renderHeader() string {
	elapsed := time.Since(m.StartTime).Round(time.Second)
	timer := fmt.Sprintf("[%s]", formatDuration(elapsed))
	workers := fmt.Sprintf("Workers: %d", m.Parallelism)

	return fmt.Sprintf("%s  %s  %s",
		m.Styles.Title.Render("Gannet Annotation Batch"),
		m.Styles.Timer.Render(timer),
		m.Styles.Workers.Render(workers),
	)
}

// renderActiveJobs renders the list of in-flight jobs
func (m *Model) renderActiveJobs() string {
	if len(m.ActiveJobs) == 0 {
		return "  No active jobs\n\n"
	}

	// Sort jobs by ID for stable display
	ids := make([]string, 0, len(m.ActiveJobs))
	for id := range m.ActiveJobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		job := m.ActiveJobs[id]
		icon := m.Styles.JobActive.Render(IconActive)
		name := m.Styles.JobName.Render(job.ID)
		phaseIcon := m.Styles.PhaseIcon.Render(job.PhaseIcon)
		phase := m.Styles.PhaseText.Render(job.Phase)
		elapsed := m.Styles.Timer.Render(
			"[" + formatDuration(time.Since(job.StartedAt).Round(time.Second)) + "]")

		fmt.Fprintf(&b, "  %s %s %s %s %s\n", icon, name, phaseIcon, phase, elapsed)
	}
	b.WriteString("\n")

	return b.String()
}

// renderProgressBar creates a progress bar of the given width
func (m *Model) renderProgressBar(completed, total, width int) string {
	if total == 0 {
		total = 1 // Avoid division by zero
	}

	filled := min((completed*width)/total, width)

	filledStr := strings.Repeat("█", filled)
	emptyStr := strings.Repeat("░", width-filled)

	return "[" +
		m.Styles.ProgressFilled.Render(filledStr) +
		m.Styles.ProgressEmpty.Render(emptyStr) +
		"]"
}

// renderStatusLine renders the summary status line
func (m *Model) renderStatusLine() string {
	finished := m.Completed + m.Failed + m.Skipped
	bar := m.renderProgressBar(finished, m.TotalJobs, 20)

	done := m.Styles.StatusComplete.Render(fmt.Sprintf("%d done", m.Completed))
	failed := m.Styles.StatusFailed.Render(fmt.Sprintf("%d failed", m.Failed))
	skipped := m.Styles.StatusSkipped.Render(fmt.Sprintf("%d skipped", m.Skipped))
	active := m.Styles.StatusActive.Render(fmt.Sprintf("%d active", len(m.ActiveJobs)))

	line := fmt.Sprintf("  Jobs: %s %d/%d %s | %s | %s | %s",
		bar, finished, m.TotalJobs, done, failed, skipped, active)
	if m.Rejected > 0 {
		line += " | " + m.Styles.StatusFailed.Render(fmt.Sprintf("%d rejected", m.Rejected))
	}

	return line
}

// renderFailures renders the tail of recent failure lines
func (m *Model) renderFailures() string {
	if len(m.Failures) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.Styles.FailTitle.Render("  Recent failures:"))
	b.WriteString("\n")
	for _, line := range m.Failures {
		b.WriteString(m.Styles.FailLine.Render("    " + line))
		b.WriteString("\n")
	}

	return b.String()
}

// renderFooter renders the help text
func (m *Model) renderFooter() string {
	key := m.Styles.FooterKey.Render("q")
	return m.Styles.Footer.Render(fmt.Sprintf("  Press %s to quit", key))
}

// formatDuration formats a duration as HH:MM:SS
func formatDuration(d time.Duration) string {
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
