package llm

import (
	"context"
	"fmt"
	"strings"
)

// Mock echoes the last user message. Useful offline and in tests.
type Mock struct {
	// Reply, when set, replaces the echo.
	Reply string
	// Err fails every call.
	Err error
	// ChunkSize splits streamed output; zero means 16 bytes.
	ChunkSize int
}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Generate(ctx context.Context, req Request) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	if req.JSON {
		return `{"ok":true}`, nil
	}
	msgs := cleanMessages(req.Messages)
	if len(msgs) == 0 {
		return "mock: ok", nil
	}
	return fmt.Sprintf("mock: %s", msgs[len(msgs)-1].Content), nil
}

func (m *Mock) Stream(ctx context.Context, req Request, onDelta func(string)) (string, error) {
	full, err := m.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	size := m.ChunkSize
	if size <= 0 {
		size = 16
	}
	var sent strings.Builder
	for i := 0; i < len(full); i += size {
		if err := ctx.Err(); err != nil {
			return sent.String(), err
		}
		end := i + size
		if end > len(full) {
			end = len(full)
		}
		sent.WriteString(full[i:end])
		if onDelta != nil {
			onDelta(full[i:end])
		}
	}
	return full, nil
}
