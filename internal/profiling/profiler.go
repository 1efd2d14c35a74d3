// Package profiling records CPU, heap and execution-trace profiles around a
// single command run.
package profiling

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options names the output file of each profile. Empty paths are skipped.
type Options struct {
	CPU   string
	Mem   string
	Trace string
}

// Enabled reports whether any profile was requested.
func (o Options) Enabled() bool {
	return o.CPU != "" || o.Mem != "" || o.Trace != ""
}

// Session is a running set of profiles. CPU and trace profiles cover the
// span between Start and Stop; the heap profile is taken at Stop.
type Session struct {
	opts  Options
	stops []func() error
}

// Start begins the CPU and trace profiles requested in opts. If one fails to
// start, those already running are stopped.
func Start(opts Options) (*Session, error) {
	s := &Session{opts: opts}

	if opts.CPU != "" {
		f, err := create(opts.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to start CPU profile: %w", err)
		}
		s.stops = append(s.stops, func() error {
			pprof.StopCPUProfile()
			return closeProfile(f, "cpu")
		})
	}

	if opts.Trace != "" {
		f, err := create(opts.Trace)
		if err != nil {
			_ = s.stopRunning()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			_ = s.stopRunning()
			return nil, fmt.Errorf("failed to start trace: %w", err)
		}
		s.stops = append(s.stops, func() error {
			trace.Stop()
			return closeProfile(f, "trace")
		})
	}

	return s, nil
}

// Stop ends running profiles and writes the heap profile. Safe to call more
// than once.
func (s *Session) Stop() error {
	if s == nil {
		return nil
	}
	err := s.stopRunning()
	if s.opts.Mem != "" {
		err = errors.Join(err, WriteHeap(s.opts.Mem))
		s.opts.Mem = ""
	}
	return err
}

func (s *Session) stopRunning() error {
	var err error
	for i := len(s.stops) - 1; i >= 0; i-- {
		err = errors.Join(err, s.stops[i]())
	}
	s.stops = nil
	return err
}

// WriteHeap writes a heap profile to path after forcing a collection.
func WriteHeap(path string) error {
	f, err := create(path)
	if err != nil {
		return err
	}

	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write heap profile: %w", err)
	}
	return closeProfile(f, "heap")
}

func create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create profile directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile file: %w", err)
	}
	return f, nil
}

func closeProfile(f *os.File, kind string) error {
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s profile: %w", kind, err)
	}
	slog.Debug("profile_written", slog.String("kind", kind), slog.String("path", f.Name()))
	return nil
}
