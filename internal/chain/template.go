package chain

import (
	"errors"
	"strings"
)

const (
	contextSlot  = "{context}"
	questionSlot = "{question}"
)

// DefaultPrompt instructs the model to answer only from the transcript context.
const DefaultPrompt = `You are a helpful assistant.
Answer ONLY from the provided transcript context.
If the context is insufficient, just say you don't know.

{context}
Question: {question}`

// Template is a prompt with {context} and {question} slots.
type Template struct {
	text string
}

// ParseTemplate checks that text carries both slots.
func ParseTemplate(text string) (*Template, error) {
	if !strings.Contains(text, contextSlot) {
		return nil, errors.New("prompt template has no {context} slot")
	}
	if !strings.Contains(text, questionSlot) {
		return nil, errors.New("prompt template has no {question} slot")
	}
	return &Template{text: text}, nil
}

// DefaultTemplate returns the built-in prompt.
func DefaultTemplate() *Template {
	return &Template{text: DefaultPrompt}
}

// Render fills the slots in a single pass, so slot markers inside the
// substituted values are left alone.
func (t *Template) Render(context, question string) string {
	return strings.NewReplacer(contextSlot, context, questionSlot, question).Replace(t.text)
}
