// Package tui provides the Bubble Tea game interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuimeteor/internal/game"
	"github.com/verte-zerg/tuimeteor/internal/glyph"
	"github.com/verte-zerg/tuimeteor/internal/logging"
	"github.com/verte-zerg/tuimeteor/internal/model"
	"github.com/verte-zerg/tuimeteor/internal/player"
	"github.com/verte-zerg/tuimeteor/internal/profile"
	"github.com/verte-zerg/tuimeteor/internal/records"
	"github.com/verte-zerg/tuimeteor/internal/sound"
	"github.com/verte-zerg/tuimeteor/internal/stats"
)

const (
	frameInterval     = 16 * time.Millisecond
	countdownInterval = time.Second
	syncTimeout       = 5 * time.Second
	boardLimit        = 10

	defaultWidth  = 72
	defaultHeight = 26
	// border (2) + key rows + notice + footer
	chromeLines = 2 + 4 + 1 + 1
)

type screen int

const (
	screenLogin screen = iota
	screenPlay
	screenBoard
)

type frameMsg struct {
	gen int
	at  time.Time
}

type countdownMsg struct {
	gen int
}

type loginDoneMsg struct {
	player model.Player
	err    error
}

type syncDoneMsg struct {
	player model.Player
	err    error
}

type boardMsg struct {
	players []model.Player
	err     error
}

// Options wires the model to its collaborators. Gateway, Sound, Profile and
// Logger are optional.
type Options struct {
	Session  *game.Session
	Gateway  records.Gateway
	KeyMap   glyph.KeyMap
	Sound    sound.Player
	Profile  *profile.Store
	Logger   *log.Logger
	PlayerID string
	Name     string
}

// Model implements the Bubble Tea game UI.
type Model struct {
	session *game.Session
	gateway records.Gateway
	keymap  glyph.KeyMap
	sound   sound.Player
	profile *profile.Store
	logger  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int
	screen screen

	idInput   textinput.Model
	nameInput textinput.Model
	focus     int
	loggingIn bool
	loginErr  string

	gen       int
	lastFrame time.Time
	bursts    []*burst
	best      int
	notice    string

	board        []model.Player
	boardErr     string
	boardLoading bool
	boardGroup   bool
}

var (
	initialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	medialStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FB3B3"))
	finalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	absentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3C3C3C"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	burstBright  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7CD67C")).Bold(true)
	burstDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3F6B3F"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	fieldBorder  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6E6E6E"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#C89A3A")).Padding(0, 2)
)

// NewModel constructs the game UI. A prefilled player id starts on the login
// screen with both fields filled so one Enter logs in.
func NewModel(opts Options) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		session: opts.Session,
		gateway: opts.Gateway,
		keymap:  opts.KeyMap,
		sound:   opts.Sound,
		profile: opts.Profile,
		logger:  opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	if m.sound == nil {
		m.sound = sound.Nop{}
	}
	if m.logger == nil {
		m.logger = logging.Discard()
	}

	m.idInput = textinput.New()
	m.idInput.Placeholder = "12345"
	m.idInput.CharLimit = player.IDLength
	m.idInput.Prompt = "Player ID: "
	m.idInput.SetValue(opts.PlayerID)

	m.nameInput = textinput.New()
	m.nameInput.Placeholder = "optional"
	m.nameInput.CharLimit = player.MaxNameLength
	m.nameInput.Prompt = "Name:      "
	m.nameInput.SetValue(opts.Name)

	m.idInput.Focus()
	return m
}

// Close cancels pending sync commands and silences sound.
func (m *Model) Close() {
	m.cancel()
	m.sound.Close()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Close()
			return m, tea.Quit
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenBoard:
			return m.updateBoard(msg)
		default:
			return m.updatePlay(msg)
		}
	case frameMsg:
		return m, m.handleFrame(msg)
	case countdownMsg:
		return m, m.handleCountdown(msg)
	case loginDoneMsg:
		return m, m.handleLogin(msg)
	case syncDoneMsg:
		m.handleSync(msg)
		return m, nil
	case boardMsg:
		m.boardLoading = false
		m.board = msg.players
		m.boardErr = ""
		if msg.err != nil {
			m.boardErr = msg.err.Error()
			m.logger.Warn("leaderboard fetch failed", "err", msg.err)
		}
		return m, nil
	}
	if m.screen == screenLogin {
		return m, m.updateInputs(msg)
	}
	return m, nil
}

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.focus = 1 - m.focus
		if m.focus == 0 {
			m.nameInput.Blur()
			return m, m.idInput.Focus()
		}
		m.idInput.Blur()
		return m, m.nameInput.Focus()
	case tea.KeyEnter:
		if m.loggingIn {
			return m, nil
		}
		return m, m.submitLogin()
	}
	return m, m.updateInputs(msg)
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if m.focus == 0 {
		m.idInput, cmd = m.idInput.Update(msg)
	} else {
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return cmd
}

func (m *Model) submitLogin() tea.Cmd {
	id, err := player.NormalizeID(m.idInput.Value())
	if err != nil {
		m.loginErr = err.Error()
		return nil
	}
	name := player.NormalizeName(m.nameInput.Value())
	m.loginErr = ""
	m.loggingIn = true
	gw := m.gateway
	ctx := m.ctx
	return func() tea.Msg {
		offline := model.Player{ID: id, Name: name}
		if gw == nil {
			return loginDoneMsg{player: offline}
		}
		ctx, cancel := context.WithTimeout(ctx, syncTimeout)
		defer cancel()
		p, err := gw.UpsertPlayer(ctx, id, name)
		if err != nil {
			return loginDoneMsg{player: offline, err: err}
		}
		return loginDoneMsg{player: p}
	}
}

func (m *Model) handleLogin(msg loginDoneMsg) tea.Cmd {
	m.loggingIn = false
	m.notice = ""
	if msg.err != nil {
		if !errors.Is(msg.err, records.ErrUnavailable) {
			m.loginErr = msg.err.Error()
			return nil
		}
		m.logger.Warn("record store unavailable, playing offline", "err", msg.err)
		m.notice = "Offline: scores are kept on screen only"
	}
	if err := m.session.SetPlayer(msg.player.ID, msg.player.Name); err != nil {
		m.loginErr = err.Error()
		return nil
	}
	m.best = msg.player.BestScore
	m.gen++
	m.bursts = nil
	m.screen = screenPlay
	m.idInput.Blur()
	m.nameInput.Blur()
	if m.notice == "" {
		m.notice = "Press space to start"
	}
	if m.profile != nil {
		if err := m.profile.Save(profile.Profile{PlayerID: msg.player.ID, Name: msg.player.Name}); err != nil {
			m.logger.Warn("failed to save profile", "err", err)
		}
	}
	m.logger.Info("player logged in", "id", msg.player.ID, "best", msg.player.BestScore)
	return nil
}

func (m *Model) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeySpace:
		if m.session.State() == game.StateRunning {
			m.pause()
			return m, nil
		}
		return m, m.start()
	case tea.KeyEsc:
		m.pause()
		return m, nil
	case tea.KeyEnter:
		switch m.session.State() {
		case game.StateRoundComplete, game.StateIdle:
			return m, m.start()
		}
		return m, nil
	case tea.KeyCtrlR:
		if err := m.session.Restart(); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.bursts = nil
		m.notice = ""
		return m, m.resume()
	case tea.KeyTab:
		m.pause()
		m.screen = screenBoard
		return m, m.fetchBoard()
	case tea.KeyRunes:
		m.submitRunes(msg.Runes)
		return m, nil
	}
	return m, nil
}

func (m *Model) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyTab, tea.KeyEnter:
		m.screen = screenPlay
		return m, nil
	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "g":
			m.boardGroup = !m.boardGroup
			return m, m.fetchBoard()
		case "r":
			return m, m.fetchBoard()
		}
	}
	return m, nil
}

func (m *Model) start() tea.Cmd {
	if err := m.session.Start(); err != nil {
		m.notice = err.Error()
		return nil
	}
	m.notice = ""
	return m.resume()
}

// resume starts a fresh pair of tick chains. Ticks from older generations
// are dropped when they arrive.
func (m *Model) resume() tea.Cmd {
	m.gen++
	m.lastFrame = time.Time{}
	return tea.Batch(frameCmd(m.gen), countdownCmd(m.gen))
}

func (m *Model) pause() {
	if m.session.State() != game.StateRunning {
		return
	}
	m.session.Pause()
	m.gen++
	m.notice = "Paused: space to resume"
}

func (m *Model) submitRunes(runes []rune) {
	for _, r := range runes {
		g, ok := m.keymap.Translate(r, m.session.Alphabet())
		if !ok {
			continue
		}
		sub := m.session.SubmitGlyph(g)
		switch sub.Outcome {
		case game.OutcomeHit:
			m.bursts = append(m.bursts, newBurst(sub.Entity.X, sub.Entity.Y, sub.Points))
			m.sound.Hit(sub.Points)
			m.notice = ""
		case game.OutcomeMiss:
			m.sound.Miss()
			m.notice = fmt.Sprintf("No %s on the field", g)
		default:
			if m.session.State() != game.StateRunning {
				m.notice = "Press space to start"
			}
		}
	}
}

func (m *Model) handleFrame(msg frameMsg) tea.Cmd {
	if msg.gen != m.gen || m.session.State() != game.StateRunning {
		return nil
	}
	dt := frameInterval
	if !m.lastFrame.IsZero() {
		dt = msg.at.Sub(m.lastFrame)
	}
	m.lastFrame = msg.at
	motion := m.session.MotionTick(dt)
	if motion.Reaped > 0 {
		m.sound.Miss()
		m.notice = fmt.Sprintf("%d escaped", motion.Reaped)
	}
	m.bursts = advanceBursts(m.bursts, dt)
	return frameCmd(m.gen)
}

func (m *Model) handleCountdown(msg countdownMsg) tea.Cmd {
	if msg.gen != m.gen {
		return nil
	}
	r, done := m.session.CountdownTick()
	if !done {
		if m.session.State() != game.StateRunning {
			return nil
		}
		return countdownCmd(m.gen)
	}
	m.gen++
	m.bursts = nil
	if r.LevelUp {
		m.sound.LevelUp()
	}
	m.notice = resultNotice(r)
	m.logger.Info("round complete", "id", r.PlayerID, "level", r.Level, "score", r.Score, "accuracy", r.Accuracy, "passed", r.Passed)
	persist := m.persistCmd(r)
	if m.session.State() == game.StateRunning {
		return tea.Batch(persist, m.resume())
	}
	return persist
}

func (m *Model) persistCmd(r game.RoundResult) tea.Cmd {
	if m.gateway == nil {
		return nil
	}
	gw := m.gateway
	ctx := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, syncTimeout)
		defer cancel()
		p, err := game.Persist(ctx, gw, r, time.Now().UTC())
		return syncDoneMsg{player: p, err: err}
	}
}

func (m *Model) handleSync(msg syncDoneMsg) {
	if msg.player.BestScore > m.best {
		m.best = msg.player.BestScore
	}
	if msg.err != nil {
		m.logger.Error("round sync failed", "err", msg.err)
		if errors.Is(msg.err, context.Canceled) {
			return
		}
		m.notice = "Could not save the round; it will not count on the leaderboard"
	}
}

func (m *Model) fetchBoard() tea.Cmd {
	m.boardLoading = true
	m.boardErr = ""
	gw := m.gateway
	ctx := m.ctx
	group := ""
	if m.boardGroup {
		group = player.GroupOf(m.session.PlayerID())
	}
	return func() tea.Msg {
		if gw == nil {
			return boardMsg{err: records.ErrUnavailable}
		}
		ctx, cancel := context.WithTimeout(ctx, syncTimeout)
		defer cancel()
		players, err := gw.Leaderboard(ctx, boardLimit, group)
		return boardMsg{players: players, err: err}
	}
}

func frameCmd(gen int) tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg{gen: gen, at: t}
	})
}

func countdownCmd(gen int) tea.Cmd {
	return tea.Tick(countdownInterval, func(time.Time) tea.Msg {
		return countdownMsg{gen: gen}
	})
}

func resultNotice(r game.RoundResult) string {
	switch {
	case r.LevelUp:
		return fmt.Sprintf("Level %d cleared, on to level %d", r.Level, r.NextLevel)
	case r.Passed:
		return "Final level cleared"
	default:
		return fmt.Sprintf("Accuracy below %.0f%%, level %d again", stats.PassThreshold*100, r.Level)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	width, height := m.size()
	if m.screen == screenLogin {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, m.loginView())
	}
	cols := width - 2
	rows := height - chromeLines
	if rows < 3 {
		rows = 3
	}
	var body string
	switch {
	case m.screen == screenBoard:
		body = lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, m.boardView(cols))
	case m.session.State() == game.StateRoundComplete:
		body = lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, m.resultView())
	default:
		body = m.fieldView(cols, rows)
	}
	frame := fieldBorder.Render(body)
	notice := noticeStyle.Render(runewidth.Truncate(m.notice, width, "..."))
	return strings.Join([]string{frame, m.renderKeys(), notice, m.renderFooter()}, "\n")
}

func (m *Model) size() (int, int) {
	width, height := m.width, m.height
	if width <= 0 || height <= 0 {
		width, height = defaultWidth, defaultHeight
	}
	return width, height
}

func (m *Model) loginView() string {
	lines := []string{
		titleStyle.Render("tuimeteor"),
		"",
		m.idInput.View(),
		m.nameInput.View(),
		"",
	}
	switch {
	case m.loggingIn:
		lines = append(lines, hintStyle.Render("Signing in..."))
	case m.loginErr != "":
		lines = append(lines, noticeStyle.Render(m.loginErr))
	default:
		lines = append(lines, hintStyle.Render("enter to play  tab to switch field  ctrl+c to quit"))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) fieldView(cols, rows int) string {
	c := newCanvas(cols, rows)
	w, h, _ := m.session.Bounds()
	for _, e := range m.session.Entities() {
		col, row := c.project(e.X, e.Y, w, h)
		if maxCol := cols - runewidth.StringWidth(e.Label); col > maxCol {
			col = maxCol
		}
		c.put(col, row, e.Label, glyphStyle(e.Label))
	}
	for _, b := range m.bursts {
		col, row := c.project(b.x, b.y, w, h)
		style := burstDim
		if b.level > 0.5 {
			style = burstBright
		}
		c.put(col, row, b.text, style)
	}
	return c.String()
}

func (m *Model) resultView() string {
	r, ok := m.session.LastResult()
	if !ok {
		return ""
	}
	verdict := fmt.Sprintf("Not passed: %.0f%% accuracy needed", stats.PassThreshold*100)
	if r.Passed {
		verdict = "Passed"
		if r.LevelUp {
			verdict = fmt.Sprintf("Passed, next is level %d", r.NextLevel)
		}
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Level %d complete", r.Level)),
		"",
		fmt.Sprintf("Correct %d  Wrong %d  Accuracy %.1f%%", r.Correct, r.Wrong, r.Accuracy*100),
		fmt.Sprintf("Per minute %.1f  Score %d  Best %d", r.PerMinute, r.Score, m.best),
		verdict,
		"",
		hintStyle.Render("enter to continue  ctrl+r to restart"),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) boardView(cols int) string {
	title := "Leaderboard"
	if m.boardGroup {
		title = fmt.Sprintf("Leaderboard, group %s", player.GroupOf(m.session.PlayerID()))
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	switch {
	case m.boardLoading:
		b.WriteString(hintStyle.Render("Loading..."))
	case m.boardErr != "":
		b.WriteString(noticeStyle.Render(m.boardErr))
	default:
		if err := stats.RenderLeaderboard(&b, m.board, cols-6); err != nil {
			m.logger.Warn("failed to render leaderboard", "err", err)
		}
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("g group  r refresh  esc back"))
	return panelStyle.Render(b.String())
}

func (m *Model) renderKeys() string {
	alphabet := m.session.Alphabet()
	lines := make([]string, 0, len(glyph.Rows))
	for _, row := range glyph.Rows {
		keys := make([]string, 0, len(row))
		for _, g := range row {
			style := glyphStyle(g)
			if !glyph.Contains(alphabet, g) {
				style = absentStyle
			}
			key := style.Render(g)
			if r, ok := m.keymap.KeyFor(g); ok {
				key += hintStyle.Render(string(r))
			} else {
				key += " "
			}
			keys = append(keys, key)
		}
		lines = append(lines, " "+strings.Join(keys, " "))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	s := m.session
	who := s.PlayerID()
	if name := s.PlayerName(); name != "" {
		who += " " + name
	}
	segments := []string{
		who,
		fmt.Sprintf("Level %d/%d", s.Level(), s.Levels()),
		fmt.Sprintf("Time %ds", s.TimeLeft()),
		fmt.Sprintf("Score %d", s.Score()),
		fmt.Sprintf("Best %d", m.best),
		fmt.Sprintf("Acc %.1f%%", s.Accuracy()*100),
		s.State().String(),
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func glyphStyle(g string) lipgloss.Style {
	switch glyph.ClassOf(g) {
	case glyph.ClassInitial:
		return initialStyle
	case glyph.ClassMedial:
		return medialStyle
	default:
		return finalStyle
	}
}
