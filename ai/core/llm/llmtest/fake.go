// Package llmtest provides a scripted llm.Service for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/mentora/mentora/ai/core/llm"
)

// Call records one request made to the fake.
type Call struct {
	Messages []llm.Message
	JSON     bool
}

// Fake is a scripted llm.Service. Responses are consumed in order; when the
// script runs out the last entry repeats. An entry with a non-nil Err fails
// the call instead.
type Fake struct {
	mu        sync.Mutex
	script    []Scripted
	callIndex int
	calls     []Call
}

// Scripted is one scripted response.
type Scripted struct {
	Content string
	Err     error
}

var _ llm.Service = (*Fake)(nil)

// NewFake creates a fake that replays the given responses in order.
func NewFake(script ...Scripted) *Fake {
	return &Fake{script: script}
}

// Respond is shorthand for a successful scripted response.
func Respond(content string) Scripted {
	return Scripted{Content: content}
}

// Fail is shorthand for a failing scripted response.
func Fail(err error) Scripted {
	return Scripted{Err: err}
}

func (f *Fake) next(messages []llm.Message, json bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Messages: messages, JSON: json})
	if len(f.script) == 0 {
		return "", nil
	}
	s := f.script[f.callIndex]
	if f.callIndex < len(f.script)-1 {
		f.callIndex++
	}
	return s.Content, s.Err
}

func (f *Fake) Chat(_ context.Context, messages []llm.Message) (string, *llm.CallStats, error) {
	content, err := f.next(messages, false)
	if err != nil {
		return "", nil, err
	}
	return content, &llm.CallStats{}, nil
}

func (f *Fake) ChatJSON(_ context.Context, messages []llm.Message) (string, *llm.CallStats, error) {
	content, err := f.next(messages, true)
	if err != nil {
		return "", nil, err
	}
	return content, &llm.CallStats{}, nil
}

func (f *Fake) ChatStream(ctx context.Context, messages []llm.Message) (<-chan string, <-chan *llm.CallStats, <-chan error) {
	contentChan := make(chan string, 16)
	statsChan := make(chan *llm.CallStats, 1)
	errChan := make(chan error, 1)

	content, err := f.next(messages, false)
	go func() {
		defer close(contentChan)
		defer close(statsChan)
		defer close(errChan)
		if err != nil {
			errChan <- err
			return
		}
		// Deliver in small chunks so streaming consumers see assembly.
		for len(content) > 0 {
			n := 8
			if n > len(content) {
				n = len(content)
			}
			select {
			case contentChan <- content[:n]:
			case <-ctx.Done():
				return
			}
			content = content[n:]
		}
		statsChan <- &llm.CallStats{}
	}()

	return contentChan, statsChan, errChan
}

func (f *Fake) Warmup(context.Context) {}

// Calls returns a copy of all requests the fake has seen.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many requests the fake has seen.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
