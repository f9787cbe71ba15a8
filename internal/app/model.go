package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jfelder/screencap/internal/history"
	"github.com/jfelder/screencap/internal/session"
	"github.com/jfelder/screencap/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

const historyLimit = 8

// Model is the root bubbletea model for the screencap TUI.
type Model struct {
	controller *session.Controller
	store      *history.Store // nil when history is disabled
	outDir     string

	// Session state mirrored from controller events
	supported bool
	state     session.State
	elapsed   time.Duration
	progress  float64
	artifact  *session.Artifact
	savedPath string

	// History
	attempts []history.Attempt

	// Errors
	errorMessage   string
	errorTransient bool

	// Status
	statusText string

	// UI state
	width  int
	height int
}

// New creates a new Model over a controller and an optional history store.
func New(controller *session.Controller, store *history.Store, outDir string) Model {
	status := "Press Space to start recording"
	if !controller.Supported() {
		status = "Unsupported"
	}
	return Model{
		controller: controller,
		store:      store,
		outDir:     outDir,
		supported:  controller.Supported(),
		state:      controller.State(),
		statusText: status,
	}
}

// Init starts the controller event loop and loads history.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		readEventCmd(m.controller),
		loadHistoryCmd(m.store),
	)
}

// readEventCmd waits for the next controller event.
func readEventCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return ControllerEventMsg{Event: <-c.Events()}
	}
}

// startCmd begins a recording attempt. Blocks through acquisition, which is
// why it runs as a command rather than inside Update.
func startCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return StartResultMsg{Err: c.Start()}
	}
}

// stopCmd feeds the user trigger into the controller's termination path.
func stopCmd(c *session.Controller) tea.Cmd {
	return func() tea.Msg {
		c.RequestStop()
		return StopRequestedMsg{}
	}
}

// downloadCmd writes the artifact into the output directory.
func downloadCmd(artifact *session.Artifact, outDir string) tea.Cmd {
	return func() tea.Msg {
		path, err := artifact.SaveTo(outDir)
		return DownloadResultMsg{Path: path, Err: err}
	}
}

// loadHistoryCmd reads recent attempts from SQLite.
func loadHistoryCmd(store *history.Store) tea.Cmd {
	return func() tea.Msg {
		if store == nil {
			return HistoryLoadedMsg{}
		}
		attempts, err := store.Recent(historyLimit)
		if err != nil {
			return HistoryLoadedMsg{} // silently ignore DB errors
		}
		return HistoryLoadedMsg{Attempts: attempts}
	}
}

// recordAttemptCmd persists one finished attempt.
func recordAttemptCmd(store *history.Store, attempt history.Attempt) tea.Cmd {
	return func() tea.Msg {
		if store == nil {
			return AttemptRecordedMsg{}
		}
		return AttemptRecordedMsg{Err: store.RecordAttempt(attempt)}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ControllerEventMsg:
		cmd := m.handleEvent(msg.Event)
		// Keep draining the controller stream.
		return m, tea.Batch(cmd, readEventCmd(m.controller))

	case StartResultMsg:
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		return m, nil

	case StopRequestedMsg:
		return m, nil

	case DownloadResultMsg:
		if msg.Err != nil {
			m.errorMessage = "download failed: " + msg.Err.Error()
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		m.savedPath = msg.Path
		m.statusText = "Saved"
		return m, nil

	case HistoryLoadedMsg:
		m.attempts = msg.Attempts
		return m, nil

	case AttemptRecordedMsg:
		// A failed insert is not worth interrupting the user for.
		return m, loadHistoryCmd(m.store)

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// handleEvent mirrors one controller event into the model and returns any
// resulting command.
func (m *Model) handleEvent(ev session.Event) tea.Cmd {
	switch ev := ev.(type) {
	case session.ElapsedEvent:
		m.elapsed = ev.Elapsed
		m.progress = ev.Progress

	case session.PreviewEvent:
		m.artifact = ev.Artifact

	case session.StateEvent:
		prev := m.state
		m.state = ev.State
		switch ev.State {
		case session.StateAcquiring:
			m.statusText = "Waiting for capture permission..."
			m.artifact = nil
			m.savedPath = ""
			m.errorMessage = ""
			m.errorTransient = false
		case session.StateRecording:
			m.statusText = "Recording"
		case session.StateStopping:
			m.statusText = "Finishing..."
		case session.StateStopped:
			m.elapsed = m.controller.Elapsed()
			m.statusText = "Preview ready"
			if m.controller.Artifact() == nil {
				m.statusText = "Nothing was recorded"
			}
			if prev.Active() {
				return m.finishAttempt("")
			}
		case session.StateFailed:
			m.statusText = "Failed"
			m.errorMessage = ev.Err
			m.errorTransient = true
			if prev.Active() {
				return tea.Batch(m.finishAttempt(ev.Err), clearTransientErrorCmd())
			}
			return clearTransientErrorCmd()
		}
		if ev.Err != "" && ev.State != session.StateFailed {
			m.errorMessage = ev.Err
			m.errorTransient = true
			return clearTransientErrorCmd()
		}
	}

	return nil
}

// finishAttempt builds the history row for the attempt that just ended.
func (m *Model) finishAttempt(errMsg string) tea.Cmd {
	ended := time.Now()
	started := m.controller.StartedAt()
	if started.IsZero() {
		started = ended
	}
	attempt := history.Attempt{
		ID:        m.controller.AttemptID(),
		StartedAt: started,
		EndedAt:   ended,
		Duration:  m.controller.Elapsed(),
		Outcome:   history.OutcomeEmpty,
		Error:     errMsg,
	}
	if errMsg != "" {
		attempt.Outcome = history.OutcomeFailed
	} else if artifact := m.controller.Artifact(); artifact != nil {
		attempt.Outcome = history.OutcomeCompleted
		attempt.Bytes = int64(artifact.Size())
		attempt.Segments = m.controller.SegmentCount()
		attempt.Container = strings.TrimPrefix(artifact.ContentType(), "video/")
		attempt.Filename = artifact.Filename()
	}
	return recordAttemptCmd(m.store, attempt)
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		m.controller.Close()
		return m, tea.Quit

	case KeySpace:
		if m.state == session.StateRecording {
			return m, stopCmd(m.controller)
		}
		if !m.supported || m.state.Active() {
			// Start is disabled while unsupported or mid-attempt.
			return m, nil
		}
		return m, startCmd(m.controller)

	case KeyDownload, KeyDownloadUpper:
		// Download stays withheld until a preview artifact exists.
		if m.artifact == nil {
			return m, nil
		}
		return m, downloadCmd(m.artifact, m.outDir)
	}

	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderBody())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("SCREENCAP")
	return title + ui.DimStyle.Render("  screen + microphone recorder")
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.state {
	case session.StateRecording:
		dot = ui.RecordingDotStyle.Render("● REC")
	case session.StateStopping:
		dot = ui.RecordingDotStyle.Render("● STOPPING")
	case session.StateAcquiring:
		dot = ui.NoticeStyle.Render("◌ ACQUIRING")
	default:
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}

	clock := fmt.Sprintf("  %s / %s", formatClock(m.elapsed), formatClock(m.controller.MaxDuration()))

	var bar string
	if m.state == session.StateRecording || m.state == session.StateStopping {
		bar = "  " + renderProgressBar(m.progress)
	}

	return dot + ui.TimestampStyle.Render(clock) + bar + "  " + ui.DimStyle.Render(m.statusText)
}

// renderProgressBar draws the elapsed/max ratio; cells past 80% of the bound
// turn yellow as the timeout approaches.
func renderProgressBar(progress float64) string {
	const barLen = 20
	filled := int(progress * barLen)
	if filled > barLen {
		filled = barLen
	}

	var bar string
	for i := 0; i < barLen; i++ {
		if i < filled {
			pct := float64(i) / float64(barLen)
			if pct > 0.8 {
				bar += ui.ProgressWarnStyle.Render("█")
			} else {
				bar += ui.ProgressFilledStyle.Render("█")
			}
		} else {
			bar += ui.ProgressEmptyStyle.Render("░")
		}
	}
	return bar
}

func (m Model) renderBody() string {
	var lines []string

	if !m.supported {
		lines = append(lines, ui.NoticeStyle.Render("  Recording is not supported in this environment."))
		lines = append(lines, ui.DimStyle.Render("  No capture engine or recording encoder was found."))
		lines = append(lines, "")
	}

	switch {
	case m.state == session.StateAcquiring:
		lines = append(lines, ui.DimStyle.Render("  Waiting for the capture permission prompt..."))
	case m.state == session.StateRecording:
		lines = append(lines, ui.DimStyle.Render(fmt.Sprintf("  %d segments buffered (%s)",
			m.controller.SegmentCount(), humanize.Bytes(uint64(m.controller.TotalBytes())))))
	case m.artifact != nil:
		lines = append(lines, m.renderPreview()...)
	case m.supported:
		lines = append(lines, ui.DimStyle.Render("  Press Space to start recording"))
	}

	lines = append(lines, "")
	lines = append(lines, m.renderHistory()...)

	return strings.Join(lines, "\n")
}

func (m Model) renderPreview() []string {
	a := m.artifact
	lines := []string{
		ui.PreviewStyle.Render("  Preview ready: ") +
			a.Filename() +
			ui.DimStyle.Render(fmt.Sprintf("  %s  %s", humanize.Bytes(uint64(a.Size())), a.ContentType())),
	}
	if m.savedPath != "" {
		lines = append(lines, ui.DimStyle.Render("  Saved to "+m.savedPath))
	} else {
		lines = append(lines, ui.DimStyle.Render("  Press d to download"))
	}
	return lines
}

func (m Model) renderHistory() []string {
	lines := []string{ui.PanelTitleStyle.Render(fmt.Sprintf("RECENT RECORDINGS (%d)", len(m.attempts)))}

	if len(m.attempts) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No recordings yet"))
		return lines
	}

	for _, a := range m.attempts {
		ts := ui.TimestampStyle.Render(a.EndedAt.Format("[2006-01-02 15:04:05]"))
		var detail string
		switch a.Outcome {
		case history.OutcomeCompleted:
			detail = fmt.Sprintf("%s  %s  %s", formatClock(a.Duration), humanize.Bytes(uint64(a.Bytes)), a.Filename)
		case history.OutcomeFailed:
			detail = ui.ErrorTextStyle.Render("failed: " + a.Error)
		default:
			detail = ui.DimStyle.Render("empty recording")
		}
		lines = append(lines, "  "+ts+" "+detail)
	}
	return lines
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string

	if m.state == session.StateRecording {
		parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Stop"))
	} else if m.supported && !m.state.Active() {
		parts = append(parts, ui.FooterKeyStyle.Render("Space")+ui.FooterDescStyle.Render(" Record"))
	}
	if m.artifact != nil {
		parts = append(parts, ui.FooterKeyStyle.Render("d")+ui.FooterDescStyle.Render(" Download"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// formatClock renders a duration as mm:ss.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
