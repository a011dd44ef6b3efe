// Package upload provides a simulated file upload action for the action
// controller. Progress advances on a ticker and the outcome is decided by a
// configurable failure rate, which makes it a convenient fixture for
// exercising retries.
package upload

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/npratt/actionctl/internal/action"
)

// Failure descriptions surfaced to the user. The controller stores an
// error's text as the failure description and the UI prints it verbatim, so
// these are capitalized sentences rather than Go-style error strings.
var (
	ErrNoFileSelected = errors.New("No file selected")
	ErrUploadFailed   = errors.New("Upload Failed")
)

// Defaults for the simulator.
const (
	DefaultInterval    = 500 * time.Millisecond
	DefaultStep        = 20.0
	DefaultFailureRate = 0.2
)

// File describes the file being uploaded. A nil *File means nothing was
// selected.
type File struct {
	Name string
	Path string
	Size int64
}

// SizeKB returns the size in kilobytes for display.
func (f *File) SizeKB() float64 {
	return float64(f.Size) / 1024
}

// Stat builds a File from a path on disk.
func Stat(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &File{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size(),
	}, nil
}

// Simulator performs fake uploads. The zero value is not usable; create one
// with NewSimulator.
type Simulator struct {
	Interval    time.Duration
	Step        float64
	FailureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator returns a simulator with default timing. failureRate is
// clamped to [0,1]. A nil rng seeds a new generator.
func NewSimulator(failureRate float64, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Simulator{
		Interval:    DefaultInterval,
		Step:        DefaultStep,
		FailureRate: min(max(failureRate, 0), 1),
		rng:         rng,
	}
}

// Action adapts the simulator to the controller's action signature.
func (s *Simulator) Action() action.Action[*File, string] {
	return s.Upload
}

// Upload reports progress every Interval in increments of Step until it
// reaches 100, then succeeds or fails according to FailureRate.
func (s *Simulator) Upload(ctx context.Context, file *File, report action.Reporter) (string, error) {
	if file == nil || file.Name == "" {
		return "", ErrNoFileSelected
	}

	step := s.Step
	if step <= 0 {
		step = DefaultStep
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	progress := 0.0
	for progress < action.MaxProgress {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
			progress = min(progress+step, action.MaxProgress)
			report(progress)
		}
	}

	if s.fails() {
		return "", ErrUploadFailed
	}
	return fmt.Sprintf("Upload Complete: %s", file.Name), nil
}

func (s *Simulator) fails() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.FailureRate
}
