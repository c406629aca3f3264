package assistant

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("question is empty")

// Ask runs one question through a throwaway widget and returns the reply.
// Cancelling ctx destroys the widget before the reply lands.
func Ask(ctx context.Context, src Source, question string, opts ...Option) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	replies := make(chan string, 1)
	opts = append(opts, WithObserver(func(s State) {
		if s.Busy || len(s.Transcript) < 3 {
			return
		}
		select {
		case replies <- s.Transcript[len(s.Transcript)-1].Text:
		default:
		}
	}))

	w := New(src, opts...)
	defer w.Close()

	w.UpdateDraft(question)
	if !w.Submit() {
		return "", ErrEmptyQuestion
	}

	select {
	case reply := <-replies:
		return reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
