package qa

import (
	"context"
	"sync"
)

// Session serializes displayed results for one conversation surface.
// Concurrent questions may execute in parallel, but only the most
// recently issued question's outcome is published; an outcome arriving
// after a later question has already published is discarded.
type Session struct {
	pipeline *Pipeline

	mu        sync.Mutex
	nextSeq   uint64
	published uint64
	latest    *Outcome
}

func NewSession(pipeline *Pipeline) *Session {
	return &Session{pipeline: pipeline}
}

// Ask runs the pipeline for a question. The returned bool reports
// whether the outcome was published; false means a later question
// finished first and this result was discarded.
func (s *Session) Ask(ctx context.Context, question string) (*Outcome, bool) {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	outcome := s.pipeline.Ask(ctx, question)
	return outcome, s.publish(seq, outcome)
}

// Search runs the literal search under the same sequencing rules.
func (s *Session) Search(ctx context.Context, term string) (*Outcome, bool) {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	outcome := s.pipeline.Search(ctx, term)
	return outcome, s.publish(seq, outcome)
}

func (s *Session) publish(seq uint64, outcome *Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.published {
		return false
	}
	s.published = seq
	s.latest = outcome
	return true
}

// Latest returns the most recently published outcome, or nil before
// the first one.
func (s *Session) Latest() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}
