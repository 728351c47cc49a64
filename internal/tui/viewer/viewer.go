// Package viewer is the terminal harness that drives a document session. It
// owns the UI-synchronous context: loads and thumbnails run as commands and
// their results are applied in Update.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Paintersrp/folio/internal/document"
	"github.com/Paintersrp/folio/internal/outline"
	"github.com/Paintersrp/folio/internal/pathutil"
	"github.com/Paintersrp/folio/internal/state"
	"github.com/Paintersrp/folio/internal/thumbnail"
)

const (
	zoomStep = 1.25

	// Panel widths are stored in points; one terminal column is taken as
	// eight points.
	pointsPerColumn = 8.0
	panelStep       = 40.0
	minPanelWidth   = 120.0
)

var defaultThumbSize = thumbnail.Size{Width: 48, Height: 64}

type loadedMsg struct {
	state document.State
}

type thumbMsg struct {
	path   string
	result thumbnail.Result
}

// View is an initial page, zoom and mode applied once the document loads.
type View struct {
	Page int
	Zoom float64
	Mode document.Mode
}

type Model struct {
	app  *state.State
	path string
	keys keyMap
	help help.Model

	session *document.Session
	pending *View

	outline     *outline.Manager
	rows        []outline.Row
	cursor      int
	showOutline bool

	loading bool
	err     error
	thumb   *thumbnail.Result
	stats   string
	notice  string

	width    int
	height   int
	quitting bool
}

// New creates a viewer for path. view may be nil.
func New(app *state.State, path string, view *View) *Model {
	if abs, err := pathutil.Absolute(path); err == nil {
		path = abs
	}
	return &Model{
		app:     app,
		path:    path,
		keys:    newKeyMap(),
		help:    help.New(),
		pending: view,
		outline: outline.NewManager(),
		loading: true,
	}
}

// Run starts the viewer on the terminal and blocks until it quits.
func Run(app *state.State, path string, view *View) error {
	m := New(app, path, view)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	m.closeSession()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(false), m.watchCmd(), m.app.CacheStatsCmd())
}

func (m *Model) loadCmd(retry bool) tea.Cmd {
	loader, path := m.app.Loader, m.path
	return func() tea.Msg {
		ctx := context.Background()
		if retry {
			return loadedMsg{state: loader.Retry(ctx, path)}
		}
		return loadedMsg{state: loader.Load(ctx, path)}
	}
}

func (m *Model) thumbCmd() tea.Cmd {
	gen, path := m.app.Thumbnails, m.path
	return func() tea.Msg {
		return thumbMsg{path: path, result: gen.GenerateResult(context.Background(), path, defaultThumbSize)}
	}
}

func (m *Model) watchCmd() tea.Cmd {
	if m.app.Watcher == nil {
		return nil
	}
	return m.app.Watcher.Start()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case loadedMsg:
		if msg.state.Path != m.path {
			return m, nil
		}
		return m, tea.Batch(m.applyLoad(msg.state), m.app.CacheStatsCmd())

	case thumbMsg:
		if msg.path == m.path {
			res := msg.result
			m.thumb = &res
		}
		return m, m.app.CacheStatsCmd()

	case state.CacheStatsMsg:
		m.stats = msg.Line

	case state.DocumentChangedMsg:
		if msg.Path == m.path {
			return m, tea.Batch(m.reload(), m.watchCmd())
		}
		return m, tea.Batch(m.watchCmd(), m.app.CacheStatsCmd())

	case state.WorkspaceGoneMsg:
		m.notice = "workspace moved or removed; grant it again"

	case state.WatcherErrMsg:
		m.notice = fmt.Sprintf("watcher: %v", msg.Err)
		return m, m.watchCmd()

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) applyLoad(st document.State) tea.Cmd {
	m.loading = false
	m.closeSession()

	if st.Err != nil {
		m.err = st.Err
		m.thumb = nil
		m.outline = outline.NewManager()
		m.rows = nil
		m.app.Logger.Debug("document load failed", zap.String("path", st.Path), zap.Error(st.Err))
		return m.thumbCmd()
	}

	session, err := m.app.OpenSession(st)
	if err != nil {
		m.err = err
		return nil
	}
	m.err = nil
	m.session = session
	m.applyPendingView()

	m.outline = outline.NewManager()
	m.outline.LoadFrom(st.Document)
	if _, err := m.outline.LoadSidecar(m.app.Access, m.path); err != nil {
		m.notice = fmt.Sprintf("outline: %v", err)
	}
	m.refreshRows()

	if err := m.app.Config.AddRecent(m.path); err != nil {
		m.app.Logger.Warn("failed to record recent file", zap.Error(err))
	}
	return m.thumbCmd()
}

func (m *Model) applyPendingView() {
	if m.pending == nil {
		return
	}
	v := m.pending
	m.pending = nil

	var errs []error
	if v.Page > 0 {
		errs = append(errs, m.session.SetPage(v.Page-1))
	}
	if v.Zoom != 0 {
		_, err := m.session.SetZoom(v.Zoom)
		errs = append(errs, err)
	}
	if v.Mode != "" {
		errs = append(errs, m.session.SetMode(v.Mode))
	}
	if err := errors.Join(errs...); err != nil {
		m.notice = err.Error()
	}
}

func (m *Model) reload() tea.Cmd {
	m.loading = true
	m.err = nil
	m.thumb = nil
	m.app.Thumbnails.Invalidate(m.path)
	return m.loadCmd(true)
}

func (m *Model) closeSession() {
	if m.session != nil {
		m.session.Close()
		m.session = nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.closeSession()
		m.quitting = true
		return tea.Quit

	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return nil

	case key.Matches(msg, m.keys.retry):
		return m.reload()

	case key.Matches(msg, m.keys.toggleOutline):
		m.showOutline = !m.showOutline
		return nil
	}

	if m.session == nil {
		return nil
	}
	if m.showOutline {
		if cmd, ok := m.handleOutlineKey(msg); ok {
			return cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.nextPage):
		m.session.NextPage()
	case key.Matches(msg, m.keys.prevPage):
		m.session.PrevPage()
	case key.Matches(msg, m.keys.zoomIn):
		_, _ = m.session.SetZoom(m.session.State().Zoom * zoomStep)
	case key.Matches(msg, m.keys.zoomOut):
		_, _ = m.session.SetZoom(m.session.State().Zoom / zoomStep)
	case key.Matches(msg, m.keys.cycleMode):
		_ = m.session.SetMode(m.session.State().Mode.Next())
	}
	return nil
}

func (m *Model) handleOutlineKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.jump):
		if n := m.selected(); n != nil && n.PageRef != nil {
			if err := m.session.SetPage(*n.PageRef); err != nil {
				m.notice = err.Error()
			}
		}
	case key.Matches(msg, m.keys.expand):
		if n := m.selected(); n != nil {
			n.Toggle()
			m.refreshRows()
		}
	case key.Matches(msg, m.keys.moveUp), key.Matches(msg, m.keys.moveDown):
		m.moveSelected(key.Matches(msg, m.keys.moveDown))
	case key.Matches(msg, m.keys.widenPanel):
		m.resizePanel(panelStep)
	case key.Matches(msg, m.keys.narrowPanel):
		m.resizePanel(-panelStep)
	case key.Matches(msg, m.keys.saveOutline):
		if err := m.outline.SaveSidecar(m.app.Access, m.path); err != nil {
			m.notice = fmt.Sprintf("outline: %v", err)
		} else {
			m.notice = "outline saved"
		}
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) resizePanel(delta float64) {
	width := max(m.app.Config.PanelWidth()+delta, minPanelWidth)
	if err := m.app.Config.SetLeftPanelWidth(width); err != nil {
		m.notice = err.Error()
	}
}

func (m *Model) panelColumns() int {
	return int(m.app.Config.PanelWidth() / pointsPerColumn)
}

func (m *Model) selected() *outline.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor].Node
}

func (m *Model) moveSelected(down bool) {
	n := m.selected()
	if n == nil {
		return
	}
	roots := m.outline.Roots()
	from := -1
	for i, r := range roots {
		if r == n {
			from = i
			break
		}
	}
	if from < 0 {
		m.notice = "only top-level entries can be reordered"
		return
	}

	to := from - 1
	if down {
		to = from + 1
	}
	if err := m.outline.Move(n, to); err != nil {
		m.notice = err.Error()
		return
	}
	m.refreshRows()
	for i, row := range m.rows {
		if row.Node == n {
			m.cursor = i
			break
		}
	}
}

func (m *Model) refreshRows() {
	m.rows = m.outline.Flatten()
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	title := titleStyle.Render(filepath.Base(m.path))

	var body string
	switch {
	case m.loading:
		body = dimStyle.Render("Loading...")
	case m.err != nil:
		body = errorStyle.Render(document.UserMessage(m.err)) + "\n" +
			dimStyle.Render("press r to retry")
		if m.thumb != nil {
			body = lipgloss.JoinVertical(lipgloss.Left, halfBlocks(m.thumb.Image), body)
		}
	default:
		body = m.pageView()
		if m.showOutline {
			panel := outlineStyle.Width(m.panelColumns()).Render(m.outlineView())
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, panel)
		}
	}

	footer := []string{}
	if m.notice != "" {
		footer = append(footer, statusStyle.Render(m.notice))
	}
	if line := m.app.Status.Get(); line != "" {
		footer = append(footer, statusStyle.Render(line))
	}
	if m.stats != "" {
		footer = append(footer, dimStyle.Render(m.stats))
	}
	footer = append(footer, m.help.View(m.keys))

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		title, "", body, "", strings.Join(footer, "\n")))
}

func (m *Model) pageView() string {
	if m.session == nil {
		return ""
	}
	st := m.session.State()
	info := fmt.Sprintf("page %d/%d · zoom %.0f%% · %s", st.PageIndex+1, st.PageCount(), st.Zoom*100, st.Mode)
	if st.Document != nil {
		w, h := st.Document.PageSize(st.PageIndex)
		info += dimStyle.Render(fmt.Sprintf("  (%.0fx%.0f pt)", w, h))
	}
	if m.thumb == nil {
		return info
	}
	tier := dimStyle.Render(fmt.Sprintf("thumbnail: %s", m.thumb.Tier))
	return lipgloss.JoinVertical(lipgloss.Left, halfBlocks(m.thumb.Image), tier, info)
}

func (m *Model) outlineView() string {
	if len(m.rows) == 0 {
		return dimStyle.Render("no outline")
	}
	lines := make([]string, 0, len(m.rows))
	for i, row := range m.rows {
		marker := "  "
		if len(row.Node.Children) > 0 {
			marker = "▸ "
			if row.Node.Expanded {
				marker = "▾ "
			}
		}
		line := strings.Repeat("  ", row.Depth) + marker + row.Node.Label
		if row.Node.PageRef != nil {
			line += dimStyle.Render(fmt.Sprintf(" p%d", *row.Node.PageRef+1))
		}
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
