package storage

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/saviobatista/uav-deconfliction/internal/log"
	"github.com/saviobatista/uav-deconfliction/internal/types"
)

const dayLayout = "2006-01-02"

// Storage appends check reports as JSON lines to one file per UTC day and
// gzips each day's file once the next day starts
type Storage struct {
	outputDir string
	logger    *log.Logger
	now       func() time.Time

	mu       sync.Mutex
	file     *os.File
	day      string
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new Storage instance
func New(outputDir string, logger *log.Logger) *Storage {
	return &Storage{
		outputDir: outputDir,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		stopChan:  make(chan struct{}),
	}
}

// Filename returns the report file for the given day
func (s *Storage) Filename(day time.Time) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("reports_%s.log", day.UTC().Format(dayLayout)))
}

// Start opens today's file and starts the midnight rotation timer
func (s *Storage) Start() error {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	s.mu.Lock()
	err := s.openLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go s.rotationTimer()
	return nil
}

// Stop closes the current file and stops the rotation timer
func (s *Storage) Stop() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// WriteReport appends a report as a single JSON line
func (s *Storage) WriteReport(report *types.CheckReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return s.WriteLine(data)
}

// WriteLine appends one line to the current day's file
func (s *Storage) WriteLine(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil || s.day != s.now().Format(dayLayout) {
		if err := s.rotateLocked(); err != nil {
			return err
		}
	}

	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	_, err := s.file.Write(line)
	return err
}

// rotationTimer handles daily rotation at midnight UTC
func (s *Storage) rotationTimer() {
	defer s.wg.Done()

	for {
		now := s.now()
		nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

		select {
		case <-time.After(nextMidnight.Sub(now)):
			s.mu.Lock()
			err := s.rotateLocked()
			s.mu.Unlock()
			if err != nil {
				s.logger.Error("Error during rotation", "error", err)
			}
		case <-s.stopChan:
			return
		}
	}
}

// rotateLocked closes the current file, compresses it if its day is over and
// opens the file for today
func (s *Storage) rotateLocked() error {
	var previous string
	if s.file != nil {
		previous = s.file.Name()
		if err := s.file.Close(); err != nil {
			s.logger.Warn("Failed to close report file", "file", previous, "error", err)
		}
		s.file = nil
	}

	today := s.now().Format(dayLayout)
	if previous != "" && s.day != today {
		if err := compressFile(previous); err != nil {
			return fmt.Errorf("failed to compress file: %w", err)
		}
		s.logger.Info("Compressed report file", "file", previous+".gz")
	}

	return s.openLocked()
}

func (s *Storage) openLocked() error {
	now := s.now()
	file, err := os.OpenFile(s.Filename(now), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	s.file = file
	s.day = now.Format(dayLayout)
	return nil
}

// compressFile gzips path into path.gz and removes the original
func compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer target.Close()

	gz := gzip.NewWriter(target)
	gz.Name = filepath.Base(path)
	if _, err := io.Copy(gz, source); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	if err := target.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}
