// Package boardui provides the Bubble Tea leaderboard and admin dashboard.
package boardui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/verte-zerg/tuimeteor/internal/logging"
	"github.com/verte-zerg/tuimeteor/internal/model"
	"github.com/verte-zerg/tuimeteor/internal/player"
	"github.com/verte-zerg/tuimeteor/internal/records"
)

const (
	tabLeaderboard = iota
	tabGroups
)

const requestTimeout = 5 * time.Second

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeToken
	modeConfirm
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7CD67C"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// LiveFunc streams record change events until ctx is done.
type LiveFunc func(ctx context.Context, fn func(model.LiveEvent)) error

// Options wires the dashboard. Admin and Live are optional.
type Options struct {
	Gateway records.Gateway
	Admin   records.Admin
	Live    LiveFunc
	Logger  *log.Logger
	Token   string
	Group   string
	Limit   int
}

type loadedMsg struct {
	players []model.Player
	groups  []model.GroupSummary
	err     error
}

type clearedMsg struct {
	req      clearRequest
	affected int64
	err      error
}

type liveMsg struct {
	ev model.LiveEvent
}

// clearRequest is a pending bulk clear. An empty group means every player.
type clearRequest struct {
	group string
	mode  model.ClearMode
}

func (r clearRequest) describe() string {
	target := "ALL players"
	if r.group != "" {
		target = "group " + r.group
	}
	verb := "Reset best scores of"
	if r.mode == model.ClearDelete {
		verb = "Delete"
	}
	return fmt.Sprintf("%s %s?", verb, target)
}

// Model implements the dashboard UI.
type Model struct {
	gateway records.Gateway
	admin   records.Admin
	live    LiveFunc
	logger  *log.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan model.LiveEvent

	tabs       []string
	activeTab  int
	boardTable table.Model
	groupTable table.Model
	players    []model.Player
	groups     []model.GroupSummary

	width  int
	height int

	group  string
	limit  int
	token  string
	errMsg string
	status string

	mode        mode
	filterInput textinput.Model
	tokenInput  textinput.Model
	pending     clearRequest
}

// NewModel constructs a dashboard model.
func NewModel(opts Options) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		gateway: opts.Gateway,
		admin:   opts.Admin,
		live:    opts.Live,
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
		tabs:    []string{"Leaderboard", "Groups"},
		group:   opts.Group,
		limit:   records.ClampLimit(opts.Limit),
		token:   opts.Token,
	}
	if m.logger == nil {
		m.logger = logging.Discard()
	}
	m.filterInput = newInput("Group prefix: ", "123")
	m.filterInput.CharLimit = player.GroupLength
	m.tokenInput = newInput("Admin token: ", "")
	m.tokenInput.EchoMode = textinput.EchoPassword
	m.tokenInput.EchoCharacter = '*'
	m.boardTable = newTable(boardColumns())
	m.groupTable = newTable(groupColumns())
	return m
}

// Close stops pending requests and the live feed.
func (m *Model) Close() {
	m.cancel()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.load()}
	if m.live != nil && m.events == nil {
		m.events = make(chan model.LiveEvent, 16)
		go m.watch()
		cmds = append(cmds, waitEvent(m.events))
	}
	return tea.Batch(cmds...)
}

func (m *Model) watch() {
	defer close(m.events)
	err := m.live(m.ctx, func(ev model.LiveEvent) {
		select {
		case m.events <- ev:
		case <-m.ctx.Done():
		}
	})
	if err != nil {
		m.logger.Warn("live feed stopped", "err", err)
	}
}

func waitEvent(ch <-chan model.LiveEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return liveMsg{ev: ev}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case loadedMsg:
		m.applyLoaded(msg)
		return m, nil
	case clearedMsg:
		return m, m.applyCleared(msg)
	case liveMsg:
		m.status = describeEvent(msg.ev)
		return m, tea.Batch(m.load(), waitEvent(m.events))
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Close()
			return m, tea.Quit
		}
		switch m.mode {
		case modeFilter:
			return m.updateFilter(msg)
		case modeToken:
			return m.updateToken(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.Close()
		return m, tea.Quit
	case "left", "h":
		m.moveTab(-1)
		return m, nil
	case "right", "l":
		m.moveTab(1)
		return m, nil
	case "r":
		return m, m.load()
	case "/":
		m.mode = modeFilter
		m.filterInput.SetValue(m.group)
		return m, m.filterInput.Focus()
	case "c":
		group := m.selectedGroup()
		if group == "" {
			m.errMsg = "Select a group (Groups tab) or set a group filter with / first"
			return m, nil
		}
		return m, m.startClear(clearRequest{group: group, mode: model.ClearReset})
	case "C":
		return m, m.startClear(clearRequest{mode: model.ClearReset})
	}
	var cmd tea.Cmd
	if m.activeTab == tabGroups {
		m.groupTable, cmd = m.groupTable.Update(msg)
	} else {
		m.boardTable, cmd = m.boardTable.Update(msg)
	}
	return m, cmd
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		group := strings.TrimSpace(m.filterInput.Value())
		if group != "" {
			if err := player.ValidateGroup(group); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
		}
		m.group = group
		m.errMsg = ""
		m.mode = modeBrowse
		m.filterInput.Blur()
		return m, m.load()
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *Model) updateToken(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.tokenInput.Blur()
		return m, nil
	case tea.KeyEnter:
		token := strings.TrimSpace(m.tokenInput.Value())
		if token == "" {
			m.errMsg = "Token is required"
			return m, nil
		}
		m.token = token
		m.errMsg = ""
		m.tokenInput.SetValue("")
		m.tokenInput.Blur()
		m.mode = modeConfirm
		return m, nil
	}
	var cmd tea.Cmd
	m.tokenInput, cmd = m.tokenInput.Update(msg)
	return m, cmd
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = modeBrowse
		return m, m.clear(m.pending)
	case "m":
		if m.pending.mode == model.ClearReset {
			m.pending.mode = model.ClearDelete
		} else {
			m.pending.mode = model.ClearReset
		}
		return m, nil
	case "n", "N", "esc":
		m.mode = modeBrowse
		m.status = "Cancelled"
		return m, nil
	}
	return m, nil
}

func (m *Model) startClear(req clearRequest) tea.Cmd {
	if m.admin == nil {
		m.errMsg = "Admin operations are not available here"
		return nil
	}
	m.pending = req
	m.errMsg = ""
	if m.token == "" {
		m.mode = modeToken
		return m.tokenInput.Focus()
	}
	m.mode = modeConfirm
	return nil
}

func (m *Model) load() tea.Cmd {
	gw := m.gateway
	ctx := m.ctx
	limit := m.limit
	group := m.group
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		players, err := gw.Leaderboard(ctx, limit, group)
		if err != nil {
			return loadedMsg{err: err}
		}
		groups, err := gw.Groups(ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{players: players, groups: groups}
	}
}

func (m *Model) clear(req clearRequest) tea.Cmd {
	admin := m.admin
	ctx := m.ctx
	token := m.token
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		var (
			n   int64
			err error
		)
		if req.group == "" {
			n, err = admin.ClearAll(ctx, token, req.mode)
		} else {
			n, err = admin.ClearGroup(ctx, token, req.group, req.mode)
		}
		return clearedMsg{req: req, affected: n, err: err}
	}
}

func (m *Model) applyLoaded(msg loadedMsg) {
	if msg.err != nil {
		m.errMsg = fmt.Sprintf("Failed to load records: %v", msg.err)
		m.logger.Warn("failed to load records", "err", msg.err)
		return
	}
	m.errMsg = ""
	m.players = msg.players
	m.groups = msg.groups
	m.boardTable.SetRows(boardRows(m.players))
	m.groupTable.SetRows(groupRows(m.groups))
}

func (m *Model) applyCleared(msg clearedMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Warn("clear failed", "group", msg.req.group, "mode", msg.req.mode, "err", msg.err)
		switch {
		case errors.Is(msg.err, records.ErrUnauthorized):
			m.token = ""
			m.pending = msg.req
			m.mode = modeToken
			m.errMsg = "Token rejected, enter it again"
			return m.tokenInput.Focus()
		case errors.Is(msg.err, records.ErrAdminDisabled):
			m.errMsg = "Admin operations are disabled on this server"
		default:
			m.errMsg = fmt.Sprintf("Clear failed: %v", msg.err)
		}
		return nil
	}
	m.errMsg = ""
	m.status = fmt.Sprintf("%s: %d players affected", strings.TrimSuffix(msg.req.describe(), "?"), msg.affected)
	m.logger.Info("records cleared", "group", msg.req.group, "mode", msg.req.mode, "affected", msg.affected)
	return m.load()
}

func (m *Model) selectedGroup() string {
	if m.activeTab == tabGroups {
		row := m.groupTable.SelectedRow()
		if len(row) > 0 {
			return row[0]
		}
		return ""
	}
	return m.group
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabGroups {
		m.groupTable.Focus()
		m.boardTable.Blur()
	} else {
		m.boardTable.Focus()
		m.groupTable.Blur()
	}
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for _, t := range []*table.Model{&m.boardTable, &m.groupTable} {
		t.SetWidth(m.width)
		t.SetHeight(maxInt(1, bodyHeight-1))
	}
	m.filterInput.Width = maxInt(10, m.width-lipgloss.Width(m.filterInput.Prompt)-2)
	m.tokenInput.Width = maxInt(10, modalWidth(m.width)-lipgloss.Width(m.tokenInput.Prompt)-6)
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X")) + 1
	footerHeight = 2
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	switch m.mode {
	case modeToken:
		return m.renderModal("Admin token", m.tokenInput.View(), "enter: continue  esc: cancel")
	case modeConfirm:
		return m.renderModal(m.pending.describe(), "Mode: "+string(m.pending.mode), "y: confirm  m: switch reset/delete  n: cancel")
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	group := m.group
	if group == "" {
		group = "all"
	}
	summary := headerStyle.Render(fmt.Sprintf("Filter: group=%s  limit=%d", group, m.limit))
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...) + "\n" + summary
}

func (m *Model) renderBody() string {
	if m.mode == modeFilter {
		lines := []string{"Group filter (enter to apply, empty for all, esc to cancel)", m.filterInput.View()}
		if m.errMsg != "" {
			lines = append(lines, errorStyle.Render(m.errMsg))
		}
		return strings.Join(lines, "\n")
	}
	if m.activeTab == tabGroups {
		if len(m.groups) == 0 {
			return "No groups found."
		}
		return tableMutedStyle.Render(m.groupTable.View())
	}
	if len(m.players) == 0 {
		return "No players found."
	}
	return tableMutedStyle.Render(m.boardTable.View())
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Filter: /  Reload: r  Clear group: c  Clear all: C  Quit: q")
	switch {
	case m.errMsg != "":
		return help + "\n" + errorStyle.Render(m.errMsg)
	case m.status != "":
		return help + "\n" + statusStyle.Render(m.status)
	}
	return help
}

func (m *Model) renderModal(title, body, help string) string {
	lines := []string{modalTitleStyle.Render(title), body, headerStyle.Render(help)}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(m.errMsg))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func describeEvent(ev model.LiveEvent) string {
	switch ev.Type {
	case model.EventBest:
		return fmt.Sprintf("Live: %s reached %d", ev.PlayerID, ev.BestScore)
	case model.EventCleared:
		target := "all groups"
		if ev.Group != "" {
			target = "group " + ev.Group
		}
		return fmt.Sprintf("Live: %s cleared (%s)", target, ev.Mode)
	}
	return "Live: records changed"
}

func newInput(prompt, placeholder string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.Placeholder = placeholder
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func boardColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 4},
		{Title: "ID", Width: 7},
		{Title: "Name", Width: 20},
		{Title: "Best", Width: 6},
		{Title: "Updated", Width: 16},
	}
}

func groupColumns() []table.Column {
	return []table.Column{
		{Title: "Group", Width: 6},
		{Title: "Players", Width: 8},
		{Title: "Top", Width: 6},
		{Title: "Avg", Width: 8},
	}
}

func boardRows(players []model.Player) []table.Row {
	rows := make([]table.Row, 0, len(players))
	for i, p := range players {
		updated := ""
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			p.ID,
			p.Name,
			strconv.Itoa(p.BestScore),
			updated,
		})
	}
	return rows
}

func groupRows(groups []model.GroupSummary) []table.Row {
	rows := make([]table.Row, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, table.Row{
			g.Group,
			strconv.Itoa(g.MemberCount),
			strconv.Itoa(g.TopScore),
			fmt.Sprintf("%.1f", g.AverageScore),
		})
	}
	return rows
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(10),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	t.SetStyles(styles)
	return t
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 72))
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
