// Package results formats benchmark results and appends them to result files.
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Format is the format of a result file.
type Format int

// formats.
const (
	FormatText Format = iota
	FormatCSV
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "text", "":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	}
	return 0, fmt.Errorf("invalid result format '%s'", s)
}

// Record is a result that can be written to a result file.
type Record interface {
	Text() string
	CSVHeader() []string
	CSVRow() []string
}

// Meta contains fields shared by all records.
type Meta struct {
	RunID string
	Stack string
	// CPU is the system CPU usage during the run, in percent.
	CPU float64
	// ProcessCPU is the CPU usage of the driver process, in percent of one core.
	ProcessCPU float64
}

// NewMeta allocates a Meta with a fresh run ID.
func NewMeta(stack string) Meta {
	return Meta{
		RunID: uuid.NewString(),
		Stack: stack,
	}
}

func (m Meta) header() []string {
	return []string{"run_id", "stack", "cpu", "process_cpu"}
}

func (m Meta) row() []string {
	return []string{m.RunID, m.Stack, formatFloat(m.CPU), formatFloat(m.ProcessCPU)}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// Write appends a record to a result file.
func Write(path string, format Format, rec Record) error {
	if dir := filepath.Dir(path); dir != "." {
		err := os.MkdirAll(dir, 0o755)
		if err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	err = write(f, format, rec)
	if err != nil {
		f.Close() //nolint:errcheck
		return err
	}

	return f.Close()
}

func write(f *os.File, format Format, rec Record) error {
	if format == FormatText {
		_, err := f.WriteString(rec.Text() + "\n")
		return err
	}

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)

	if fi.Size() == 0 {
		err = w.Write(rec.CSVHeader())
		if err != nil {
			return err
		}
	}

	err = w.Write(rec.CSVRow())
	if err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
