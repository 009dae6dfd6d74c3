package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ytrag/internal/textutil"
)

// ChatPort is the TUI-facing subset of the chatbot.
type ChatPort interface {
	ProcessVideo(ctx context.Context, ref string) (bool, error)
	Ask(ctx context.Context, question string) (string, error)
	Summary() string
	VideoID() string
}

const videoCommand = "/video"

type exchange struct {
	question string
	answer   string
	err      error
}

type processedMsg struct {
	ref string
	err error
}

type answerMsg struct {
	question string
	answer   string
	err      error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	service  ChatPort
	input    textinput.Model
	viewport viewport.Model
	history  []exchange
	status   string
	pending  string
	busy     bool
	ready    bool
}

// New creates a new TUI model. A non-empty ref is processed on start.
func New(ctx context.Context, service ChatPort, ref string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "YouTube URL or video ID"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: vp,
		pending:  strings.TrimSpace(ref),
		status:   "Paste a YouTube link to start. Type exit to quit.",
	}
}

// Init starts the cursor blink and processes the initial video, if any.
func (m Model) Init() tea.Cmd {
	if m.pending == "" {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.process(m.pending))
}

func (m Model) process(ref string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.service.ProcessVideo(m.ctx, ref)
		return processedMsg{ref: ref, err: err}
	}
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := m.service.Ask(m.ctx, question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.refresh()
		return m, nil
	case processedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = DescribeError(msg.err)
		} else {
			m.status = fmt.Sprintf("Ready: %s. Ask a question, or %s <url> to switch.", m.service.VideoID(), videoCommand)
			m.input.Placeholder = "Ask about the video"
		}
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		m.history = append(m.history, exchange{question: msg.question, answer: msg.answer, err: msg.err})
		m.status = "Ask another question."
		if msg.err != nil {
			m.status = DescribeError(msg.err)
		}
		m.refresh()
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
		switch msg.String() {
		case "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	switch strings.ToLower(text) {
	case "exit", "quit":
		return m, tea.Quit
	}
	if m.busy {
		m.status = "Still working, please wait."
		return m, nil
	}
	m.input.Reset()

	ref, isVideo := strings.CutPrefix(text, videoCommand)
	if !isVideo && m.service.VideoID() == "" {
		ref, isVideo = text, true
	}
	if isVideo {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			m.status = "Usage: " + videoCommand + " <YouTube URL or ID>"
			return m, nil
		}
		m.busy = true
		m.status = "Processing " + ref + " ..."
		return m, m.process(ref)
	}
	m.busy = true
	m.status = "Thinking..."
	return m, m.ask(text)
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "YouTube Transcript Q&A"
	if id := m.service.VideoID(); id != "" {
		title += "  [" + id + "]"
	}
	header := lipgloss.NewStyle().Bold(true).Render(title)
	summary := summaryStyle.Width(m.viewport.Width).Render(m.service.Summary())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderHistory())
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}
	width := max(10, m.viewport.Width-4)
	blocks := make([]string, 0, len(m.history))
	for _, e := range m.history {
		q := questionStyle.Render("Q: " + e.question)
		var body string
		if e.err != nil {
			body = errorStyle.Render(DescribeError(e.err))
		} else {
			body = highlightBestSentence(e.answer, e.question)
		}
		blocks = append(blocks, lipgloss.NewStyle().Width(width).Render(q+"\n"+body))
	}
	return strings.Join(blocks, "\n\n")
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasizes the sentence of text sharing the most words
// with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := textutil.TokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(trimAll(sentences), " ")
	}
	bestIdx := 0
	bestScore := -1.0
	for i, s := range sentences {
		if score := textutil.Ochiai(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	sentences = trimAll(sentences)
	if bestScore > 0 {
		sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	}
	return strings.Join(sentences, " ")
}

func trimAll(ss []string) []string {
	for i := range ss {
		ss[i] = strings.TrimSpace(ss[i])
	}
	return ss
}
