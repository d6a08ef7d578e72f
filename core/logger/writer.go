package logger

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"
)

// fanoutWriter writes each log line to every sink in order. A sink that
// fails is detached and its error kept; the remaining sinks keep receiving lines.
type fanoutWriter struct {
	mu     sync.Mutex
	sinks  []io.Writer
	errs   []error
	closed bool
}

func newFanoutWriter(writers []io.Writer) *fanoutWriter {
	sinks := make([]io.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, w)
		}
	}
	return &fanoutWriter{sinks: sinks}
}

// Write copies p to all live sinks. It fails only when no sink is left.
func (w *fanoutWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("logger: writer closed")
	}
	live := w.sinks[:0]
	for i, sink := range w.sinks {
		if _, err := sink.Write(p); err != nil {
			w.errs = append(w.errs, fmt.Errorf("logger: sink %d: %w", i, err))
			continue
		}
		live = append(live, sink)
	}
	w.sinks = live
	if len(w.sinks) == 0 {
		return errors.Join(w.errs...)
	}
	return nil
}

// Flush syncs sinks that support it.
func (w *fanoutWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, sink := range w.sinks {
		if s, ok := sink.(interface{ Sync() error }); ok {
			if err := s.Sync(); err != nil && !isUnsyncable(err) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close stops accepting lines and reports every sink failure seen so far.
func (w *fanoutWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return errors.Join(w.errs...)
}

// isUnsyncable matches the error returned when syncing a terminal or pipe.
func isUnsyncable(err error) bool {
	return errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.ENOTSUP)
}
