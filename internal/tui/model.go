package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"contractqa/internal/config"
	"contractqa/internal/domain"
	"contractqa/internal/session"
	"contractqa/internal/textutil"
)

// SnippetChars is how much of each retrieved chunk is listed under an answer.
const SnippetChars = 200

// ChatPort is the TUI-facing subset of the contract service.
type ChatPort interface {
	Ask(ctx context.Context, query string, topK, maxContextChars int) (session.Answer, error)
	Conversation() []domain.Turn
}

// Options seed the header and the retrieval controls.
type Options struct {
	Source          string
	Summary         string
	TopK            int
	MaxContextChars int
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusWarn
	statusError
)

type answerMsg struct {
	query  string
	answer session.Answer
	err    error
}

// Model is the Bubble Tea model for the chat window.
type Model struct {
	ctx      context.Context
	service  ChatPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	source          string
	summary         string
	topK            int
	maxContextChars int

	sources    []domain.RetrievalResult
	lastQuery  string
	status     string
	statusKind statusKind
	busy       bool
	ready      bool
	width      int
}

// New creates a new TUI model instance.
func New(ctx context.Context, service ChatPort, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the contract and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))
	vp := viewport.New(0, 0)

	topK := opts.TopK
	if topK < config.MinTopK || topK > config.MaxTopK {
		topK = session.DefaultTopK
	}
	maxCtx := clampContext(opts.MaxContextChars)
	if opts.MaxContextChars <= 0 {
		maxCtx = session.DefaultMaxContextChars
	}
	return Model{
		ctx:             ctx,
		service:         service,
		input:           ti,
		viewport:        vp,
		spinner:         sp,
		source:          opts.Source,
		summary:         opts.Summary,
		topK:            topK,
		maxContextChars: maxCtx,
		status:          "Document indexed. Ask a question.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		headerLines := 3 // title, summary, controls
		footerLines := 1 // status
		reserved := headerLines + footerLines + qh + 1
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.sources = nil
			m.setError(msg.err)
		} else {
			m.sources = msg.answer.Sources
			m.lastQuery = msg.query
			m.status = fmt.Sprintf("Answered from %d chunk(s).", len(msg.answer.Sources))
			m.statusKind = statusInfo
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.status = "Please enter a question."
				m.statusKind = statusWarn
				return m, nil
			}
			m.busy = true
			m.status = "Retrieving context and generating answer..."
			m.statusKind = statusInfo
			m.input.Reset()
			m.refreshPending(q)
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case "tab":
			m.topK = m.topK%config.MaxTopK + 1
			return m, nil
		case "shift+tab":
			m.topK = (m.topK+config.MaxTopK-2)%config.MaxTopK + 1
			return m, nil
		case "ctrl+n":
			m.maxContextChars = clampContext(m.maxContextChars + 100)
			return m, nil
		case "ctrl+p":
			m.maxContextChars = clampContext(m.maxContextChars - 100)
			return m, nil
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		case "pgup":
			m.viewport.ViewUp()
			return m, nil
		case "pgdown":
			m.viewport.ViewDown()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, svc, topK, maxCtx := m.ctx, m.service, m.topK, m.maxContextChars
	return func() tea.Msg {
		ans, err := svc.Ask(ctx, q, topK, maxCtx)
		return answerMsg{query: q, answer: ans, err: err}
	}
}

func (m *Model) setError(err error) {
	m.statusKind = statusError
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		m.status = "Please enter a question."
		m.statusKind = statusWarn
	case errors.Is(err, domain.ErrEmbeddingService):
		m.status = "Embedding service error: " + err.Error()
	case errors.Is(err, domain.ErrAnswerGeneration):
		m.status = "Answer generation failed: " + err.Error()
	default:
		m.status = "Error: " + err.Error()
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "Contract Q&A"
	if m.source != "" {
		title += "  " + sourceStyle.Render(m.source)
	}
	header := titleStyle.Render(title)
	summary := summaryStyle.Render(Snippet(m.summary, max(20, m.width)-3))
	controls := controlsStyle.Render(fmt.Sprintf(
		"top_k: %d (tab/shift+tab)   context chars: %d (ctrl+n/ctrl+p)   scroll: up/down pgup/pgdown",
		m.topK, m.maxContextChars))
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())

	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	switch m.statusKind {
	case statusWarn:
		status = warnStyle.Render(status)
	case statusError:
		status = errorStyle.Render(status)
	default:
		status = statusStyle.Render(status)
	}
	return header + "\n" + summary + "\n" + controls + "\n" + results + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation(""))
	m.viewport.GotoBottom()
}

func (m *Model) refreshPending(q string) {
	m.viewport.SetContent(m.renderConversation(q))
	m.viewport.GotoBottom()
}

// renderConversation lays out every turn followed by the chunks used for the
// latest answer. pending is a question that has not been recorded yet.
func (m Model) renderConversation(pending string) string {
	width := max(20, m.viewport.Width)
	wrap := lipgloss.NewStyle().Width(width)

	turns := m.service.Conversation()
	if len(turns) == 0 && pending == "" {
		return wrap.Render("No questions yet.")
	}
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(renderTurn(t, wrap))
		b.WriteString("\n\n")
	}
	if pending != "" && (len(turns) == 0 || turns[len(turns)-1].Message != pending) {
		b.WriteString(renderTurn(domain.Turn{Role: domain.RoleUser, Message: pending}, wrap))
		b.WriteString("\n\n")
	}
	if len(m.sources) > 0 && pending == "" {
		b.WriteString(sourcesHeaderStyle.Render("Retrieved chunks:"))
		b.WriteString("\n")
		for _, r := range m.sources {
			line := fmt.Sprintf("- %s (%.3f): %s", r.ChunkID, r.Score, highlightBestSentence(Snippet(r.Text, SnippetChars), m.lastQuery))
			b.WriteString(wrap.Render(line))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTurn(t domain.Turn, wrap lipgloss.Style) string {
	if t.Role == domain.RoleUser {
		return wrap.Render(userStyle.Render("You:") + " " + t.Message)
	}
	return wrap.Render(assistantStyle.Render("Assistant:") + " " + t.Message)
}

// Snippet returns the first n characters of text with line breaks collapsed,
// followed by "..." when text was cut.
func Snippet(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	cut := session.Truncate(flat, n)
	if cut != flat {
		return cut + "..."
	}
	return cut
}

var (
	resultBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle         = lipgloss.NewStyle().Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	controlsStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	sourcesHeaderStyle = lipgloss.NewStyle().Underline(true)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	spinnerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

// highlightBestSentence emphasises the sentence sharing the most terms with
// the query. Text outside that sentence is left as is.
func highlightBestSentence(text, query string) string {
	qTerms := textutil.TermSet(query)
	if len(qTerms) == 0 {
		return text
	}
	best, bestScore := "", 0
	for _, s := range textutil.Sentences(text) {
		if score := textutil.Overlap(qTerms, s); score > bestScore {
			best, bestScore = s, score
		}
	}
	if best == "" {
		return text
	}
	return strings.Replace(text, best, highlightStyle.Render(best), 1)
}

func clampContext(n int) int {
	return min(config.MaxMaxContextChars, max(config.MinMaxContextChars, n))
}
