package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cargotrack/routeplay/internal/playback"
	"github.com/cargotrack/routeplay/internal/storage"
)

// StatusSource is read on every tick. *playback.Session implements it.
type StatusSource interface {
	Status() playback.Status
}

// StatusPublisher pushes the status to connected pages.
type StatusPublisher interface {
	PublishStatus(status any)
}

// StatusWriter writes the status to a time-series store.
type StatusWriter interface {
	WriteStatus(s storage.StatusSample) error
}

// Dependencies holds all dependencies for the monitor service. Everything
// except Source and Logger is optional.
type Dependencies struct {
	Source     StatusSource
	Logger     *slog.Logger
	Publisher  StatusPublisher
	Recorder   storage.StatusRecorder
	Writer     StatusWriter
	StatusFile string
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	now       func() time.Time
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	return &Service{
		deps:     deps,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample converts the current session status into a storage sample.
func (s *Service) Sample() (playback.Status, storage.StatusSample) {
	st := s.deps.Source.Status()
	return st, storage.StatusSample{
		SessionID: st.SessionID,
		Route:     st.Route,
		Phase:     string(st.Phase),
		Index:     st.Index,
		Total:     st.Total,
		Loops:     st.Loops,
		Position:  st.Position,
		Time:      s.now(),
	}
}

// Report runs one monitor tick.
func (s *Service) Report() {
	logger := s.deps.Logger
	st, sample := s.Sample()

	logger.Debug("playback status",
		"phase", st.Phase,
		"route", st.Route,
		"index", st.Index,
		"total", st.Total,
		"loops", st.Loops)

	if s.deps.Publisher != nil {
		s.deps.Publisher.PublishStatus(st)
	}

	// idle sessions have nothing worth keeping
	if st.Phase == playback.PhaseIdle {
		return
	}

	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.RecordStatus(sample); err != nil {
			logger.Error("Error recording status", "error", err)
		}
	}
	if s.deps.Writer != nil {
		if err := s.deps.Writer.WriteStatus(sample); err != nil {
			logger.Error("Error writing status point", "error", err)
		}
	}
	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, st); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}
}

func writeStatusFile(path string, st playback.Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Report()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
