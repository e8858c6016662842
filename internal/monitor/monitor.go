// Package monitor implements the live sensor monitoring TUI using
// BubbleTea with real-time sparkline charts per record field.
package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/sensorapp/internal/capture"
	"github.com/luki/sensorapp/internal/chart"
	"github.com/luki/sensorapp/internal/history"
	"github.com/luki/sensorapp/internal/sensor"
)

const (
	statusInterval = 1 * time.Second
	historySize    = 600
	drainBatch     = 128
)

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type recordsMsg []sensor.Record

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live monitor. The sensors keep
// recording while the model is paused; only the display freezes.
type Model struct {
	session *capture.Session
	feed    *Feed
	dataDir string

	history *history.Store
	latest  map[sensor.Type]sensor.Record
	counts  map[sensor.Type]int
	status  []capture.Status

	selected   int
	scroll     int
	width      int
	height     int
	lastRecord time.Time
	startTime  time.Time
	paused     bool
}

// New creates the initial model for the live monitor.
func New(session *capture.Session, feed *Feed, dataDir string) Model {
	return Model{
		session:   session,
		feed:      feed,
		dataDir:   dataDir,
		history:   history.NewStore(historySize),
		latest:    make(map[sensor.Type]sensor.Record),
		counts:    make(map[sensor.Type]int),
		status:    session.Status(),
		startTime: time.Now(),
	}
}

// Run shows the monitor until the user quits.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// ── Commands ─────────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(statusInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForRecords(f *Feed) tea.Cmd {
	return func() tea.Msg {
		return recordsMsg(f.drain(drainBatch))
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForRecords(m.feed), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.status)-1 {
				m.selected++
			}
		case "pgup":
			if m.scroll > 0 {
				m.scroll--
			}
		case "pgdown":
			m.scroll++
		case "home":
			m.scroll = 0
		case " ":
			m.toggleSelected()
		case "p":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.status = m.session.Status()
		return m, tickCmd()

	case recordsMsg:
		if !m.paused {
			for _, rec := range msg {
				m.history.Add(rec)
				m.latest[rec.Type] = rec
				m.counts[rec.Type]++
				m.lastRecord = rec.Time
			}
		}
		return m, waitForRecords(m.feed)
	}

	return m, nil
}

func (m *Model) toggleSelected() {
	if m.selected >= len(m.status) {
		return
	}
	t, err := sensor.ParseType(m.status[m.selected].Type)
	if err != nil {
		return
	}
	sn, ok := m.session.Lookup(t)
	if !ok {
		return
	}
	if sn.IsReporting() {
		sn.StopReporting()
	} else {
		sn.StartReporting()
	}
	m.status = m.session.Status()
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorSelected = lipgloss.Color("51")
	colorName     = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorIdle     = lipgloss.Color("220")
	colorOff      = lipgloss.Color("196")
	colorPaused   = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.renderTitleBar(contentWidth))

	if len(m.status) == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("No sensors configured")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderSensorPanels(contentWidth)...)
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}

	start := m.scroll
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("SENSOR MONITOR")

	dim := lipgloss.NewStyle().Foreground(colorDim)
	var statusParts []string
	statusParts = append(statusParts, dim.Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime)))))

	if !m.lastRecord.IsZero() {
		statusParts = append(statusParts, dim.Render(m.lastRecord.Format("15:04:05")))
	}

	if m.paused {
		p := lipgloss.NewStyle().
			Foreground(colorPaused).
			Bold(true).
			Render("PAUSED")
		statusParts = append(statusParts, p)
	}

	if m.dataDir != "" {
		rec := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Render("REC") +
			dim.Render(" "+m.dataDir)
		statusParts = append(statusParts, rec)
	}

	sep := dim.Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + filler + right)
}

func stateBadge(st capture.Status) string {
	switch {
	case st.Reporting:
		return lipgloss.NewStyle().Foreground(colorOk).Bold(true).Render("● REPORTING")
	case st.Available:
		return lipgloss.NewStyle().Foreground(colorIdle).Render("○ IDLE")
	default:
		return lipgloss.NewStyle().Foreground(colorOff).Render("✕ UNAVAILABLE")
	}
}

func (m Model) renderSensorPanels(totalWidth int) []string {
	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}

	chartWidth := innerWidth - 80
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	labelW := 20
	valueW := 14

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var panels []string

	for i, st := range m.status {
		t, err := sensor.ParseType(st.Type)
		if err != nil {
			continue
		}

		var rows []string

		name := lipgloss.NewStyle().
			Bold(true).
			Foreground(colorName).
			Render(st.Type)
		count := dimS.Render(fmt.Sprintf("%d records", m.counts[t]))
		rows = append(rows, name+"  "+stateBadge(st)+"  "+count)

		var lastPts []history.Point

		for _, field := range sensor.FieldNames(t) {
			hist := m.history.Get(history.Key(t, field))
			if hist == nil {
				continue
			}
			rangeMin, rangeMax := hist.Range()
			unit := sensor.Unit(t, field)

			labelText := field
			if unit != "" {
				labelText += " (" + unit + ")"
			}
			label := lipgloss.NewStyle().
				Foreground(colorLabel).
				Width(labelW).
				Render(truncate(labelText, labelW))

			value := lipgloss.NewStyle().
				Width(valueW).
				Align(lipgloss.Right).
				Render(chart.RenderValue(hist.Last(), "", rangeMin, rangeMax))

			pts := hist.LastNPoints(chartWidth)
			lastPts = pts
			spark := chart.RenderSparklinePoints(pts, chartWidth, rangeMin, rangeMax)
			framedSpark := frameL + spark + frameR

			stats := dimS.Render(" avg") + valS.Render(fmt.Sprintf("%9.3f", hist.Avg())) +
				dimS.Render(" lo") + valS.Render(fmt.Sprintf("%9.3f", hist.Min)) +
				dimS.Render(" pk") + valS.Render(fmt.Sprintf("%9.3f", hist.Peak))

			rows = append(rows, label+" "+value+" "+framedSpark+stats)
		}

		if lastPts != nil {
			timeline := chart.RenderTimeline(lastPts, chartWidth)
			if strings.TrimSpace(timeline) != "" {
				pad := strings.Repeat(" ", labelW+valueW+2)
				rows = append(rows, pad+" "+timeline)
			}
		}

		border := colorBorder
		if i == m.selected {
			border = colorSelected
		}
		panelContent := lipgloss.JoinVertical(lipgloss.Left, rows...)
		panel := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			Width(totalWidth).
			Render(panelContent)

		panels = append(panels, panel)
	}

	return panels
}

func (m Model) renderFooter(width int) string {
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render("│")
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	labelS := lipgloss.NewStyle().Foreground(colorLabel)

	legend := tickS + dimS.Render(" 1min")
	if n := m.feed.Dropped(); n > 0 {
		legend += dimS.Render(fmt.Sprintf("  %d not shown", n))
	}

	keys := dimS.Render("q") + labelS.Render(":quit") +
		dimS.Render("  j/k") + labelS.Render(":select") +
		dimS.Render("  space") + labelS.Render(":start/stop") +
		dimS.Render("  p") + labelS.Render(":pause")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + filler + keys)
}

func truncate(s string, w int) string {
	if len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}
	return s[:w-1] + "…"
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
