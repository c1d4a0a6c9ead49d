package multiq

import (
	"context"
	"sync"
)

// Stream is a lazy, single-pass, finite sequence of results produced by a
// computation job. Results are pulled by the consumer; once consumed they
// cannot be replayed. Errors raised while the job streams surface from Next
// at the point of iteration - results already observed are not rolled back.
type Stream struct {
	ch  chan Result
	mu  sync.Mutex
	err error
}

func newStream() *Stream {
	return &Stream{
		ch: make(chan Result),
	}
}

// fail terminates the stream with an error
func (s *Stream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.ch)
}

// deliver pushes the results to the consumer then closes the stream. Delivery
// stops early if the context is cancelled.
func (s *Stream) deliver(ctx context.Context, results []Result) {
	for _, r := range results {
		select {
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		case s.ch <- r:
		}
	}
	close(s.ch)
}

func (s *Stream) lastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Next returns the next result. It returns (nil, nil) once the stream is
// exhausted and (nil, err) if the job failed.
func (s *Stream) Next(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-s.ch:
		if !ok {
			return nil, s.lastErr()
		}
		return &r, nil
	}
}

// ForEach pulls results until the stream is exhausted, the function returns
// false, or an error occurs
func (s *Stream) ForEach(ctx context.Context, fn func(r Result) (bool, error)) error {
	for {
		r, err := s.Next(ctx)
		if err != nil {
			return err
		}
		if r == nil {
			return nil
		}
		cont, err := fn(*r)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// All drains the stream and returns the remaining results
func (s *Stream) All(ctx context.Context) ([]Result, error) {
	var results []Result
	if err := s.ForEach(ctx, func(r Result) (bool, error) {
		results = append(results, r)
		return true, nil
	}); err != nil {
		return nil, err
	}
	return results, nil
}
