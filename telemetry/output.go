package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/rpsarena/config"
)

// Output file names inside the manager's directory.
const (
	TelemetryFile = "telemetry.csv"
	PerfFile      = "perf.csv"
	BookmarksFile = "bookmarks.csv"
	RunsFile      = "runs.csv"
	ConfigFile    = "config.yaml"
)

// csvSink is one append-only CSV file whose header goes out with the first row.
type csvSink struct {
	f             *os.File
	headerWritten bool
}

// writeRecord appends rec to s, writing the header first if needed.
func writeRecord[T any](s *csvSink, rec T) error {
	records := []T{rec}
	if s.headerWritten {
		return gocsv.MarshalWithoutHeaders(records, s.f)
	}
	if err := gocsv.Marshal(records, s.f); err != nil {
		return err
	}
	s.headerWritten = true
	return nil
}

// OutputManager writes a run's CSV logs and config snapshot into one
// directory. Each CSV file is created on its first record. A nil manager
// discards everything.
type OutputManager struct {
	dir   string
	sinks map[string]*csvSink
	order []string // open order, for Close
}

// NewOutputManager creates the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &OutputManager{dir: dir, sinks: make(map[string]*csvSink)}, nil
}

// appendRow writes rec to the named CSV file, creating it on first use.
func appendRow[T any](om *OutputManager, name string, rec T) error {
	if om == nil {
		return nil
	}
	s, ok := om.sinks[name]
	if !ok {
		f, err := os.Create(filepath.Join(om.dir, name))
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		s = &csvSink{f: f}
		om.sinks[name] = s
		om.order = append(om.order, name)
	}
	if err := writeRecord(s, rec); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// WriteConfig saves the configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteTelemetry appends a window to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	return appendRow(om, TelemetryFile, stats)
}

// WritePerf appends the perf window ending at windowEnd to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	return appendRow(om, PerfFile, stats.ToCSV(windowEnd))
}

// WriteBookmark appends a bookmark to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	return appendRow(om, BookmarksFile, b)
}

// WriteRun appends one finished run to runs.csv.
func (om *OutputManager) WriteRun(r RunResult) error {
	return appendRow(om, RunsFile, r)
}

// Path returns the full path of a file in the output directory.
func (om *OutputManager) Path(name string) string {
	if om == nil {
		return ""
	}
	return filepath.Join(om.dir, name)
}

// Close closes every file opened so far.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, name := range om.order {
		if err := om.sinks[name].f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
	}
	om.sinks = make(map[string]*csvSink)
	om.order = nil
	return errors.Join(errs...)
}
