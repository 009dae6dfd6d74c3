package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytrag/internal/domain"
)

type fakeChat struct {
	videoID   string
	processed []string
	asked     []string
	askErr    error
}

func (f *fakeChat) ProcessVideo(_ context.Context, ref string) (bool, error) {
	f.processed = append(f.processed, ref)
	if ref == "bad" {
		return false, domain.ErrInvalidReference
	}
	f.videoID = "dQw4w9WgXcQ"
	return true, nil
}

func (f *fakeChat) Ask(_ context.Context, q string) (string, error) {
	f.asked = append(f.asked, q)
	if f.askErr != nil {
		return "", f.askErr
	}
	return "The answer. Gradient descent lowers the loss.", nil
}

func (f *fakeChat) Summary() string { return "summary" }
func (f *fakeChat) VideoID() string { return f.videoID }

func typeAndSubmit(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

func TestFirstInputIsTreatedAsVideo(t *testing.T) {
	chat := &fakeChat{}
	m := New(context.Background(), chat, "")

	m, cmd := typeAndSubmit(t, m, "https://youtu.be/dQw4w9WgXcQ")
	assert.True(t, m.busy)
	m = run(t, m, cmd)

	assert.False(t, m.busy)
	assert.Equal(t, []string{"https://youtu.be/dQw4w9WgXcQ"}, chat.processed)
	assert.Contains(t, m.status, "dQw4w9WgXcQ")
}

func TestAskAfterProcessing(t *testing.T) {
	chat := &fakeChat{videoID: "dQw4w9WgXcQ"}
	m := New(context.Background(), chat, "")

	m, cmd := typeAndSubmit(t, m, "what lowers the loss?")
	m = run(t, m, cmd)

	require.Len(t, m.history, 1)
	assert.Equal(t, []string{"what lowers the loss?"}, chat.asked)
	assert.Equal(t, "The answer. Gradient descent lowers the loss.", m.history[0].answer)
	assert.Contains(t, m.renderHistory(), "Q: what lowers the loss?")
}

func TestVideoCommandSwitches(t *testing.T) {
	chat := &fakeChat{videoID: "dQw4w9WgXcQ"}
	m := New(context.Background(), chat, "")

	m, cmd := typeAndSubmit(t, m, "/video 9bZkp7q19f0")
	_ = run(t, m, cmd)
	assert.Equal(t, []string{"9bZkp7q19f0"}, chat.processed)
	assert.Empty(t, chat.asked)
}

func TestProcessErrorShownInStatus(t *testing.T) {
	chat := &fakeChat{}
	m := New(context.Background(), chat, "bad")

	m = run(t, m, m.process("bad"))
	assert.Equal(t, "That is not a YouTube URL or video ID.", m.status)
}

func TestExitQuits(t *testing.T) {
	m := New(context.Background(), &fakeChat{}, "")
	_, cmd := typeAndSubmit(t, m, "exit")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestDescribeError(t *testing.T) {
	auth := domain.NewServiceError("embed", domain.ErrEmbedding, domain.FailureAuth, errors.New("401"))
	rate := domain.NewServiceError("generate", domain.ErrGeneration, domain.FailureRateLimit, errors.New("429"))

	assert.Contains(t, DescribeError(auth), "API key")
	assert.Contains(t, DescribeError(rate), "rate limiting")
	assert.Equal(t, "Captions are disabled for this video.", DescribeError(domain.ErrCaptionsDisabled))
	assert.Equal(t, "Process a video first.", DescribeError(domain.ErrNotReady))
	assert.Equal(t, "Error: boom", DescribeError(errors.New("boom")))
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Cats sleep a lot. Dogs bark loudly.", "why do dogs bark")
	assert.Contains(t, out, "Cats sleep a lot.")
	assert.Contains(t, out, "Dogs bark loudly.")
	assert.Equal(t, "plain text", highlightBestSentence("plain text", ""))
}
