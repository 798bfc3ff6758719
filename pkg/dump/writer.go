package dump

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/renlord/bitcoin-txodump/pkg/common"
)

const (
	// FinalName is the dump file name; its existence is the sole signal
	// that a run completed.
	FinalName = "txo.csv"

	// WorkingName is the file written during the run.
	WorkingName = "txo.csv.tmp"
)

// LineWriter appends spend records to the working file in discovery order
// and promotes it to the final name on Finalize.
type LineWriter struct {
	file      *os.File
	buf       *bufio.Writer
	tmpPath   string
	finalPath string
	finalized bool
}

// NewLineWriter creates (truncating) the working file inside folder.
func NewLineWriter(folder string) (*LineWriter, error) {
	tmpPath := filepath.Join(folder, WorkingName)
	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create working file %s", tmpPath)
	}

	return &LineWriter{
		file:      file,
		buf:       bufio.NewWriter(file),
		tmpPath:   tmpPath,
		finalPath: filepath.Join(folder, FinalName),
	}, nil
}

// WriteRecord appends one line: height;coin_age;fee_rate;value
func (w *LineWriter) WriteRecord(r common.SpendRecord) error {
	_, err := fmt.Fprintf(w.buf, "%d;%d;%d;%d\n", r.Height, r.CoinAge, r.FeeRate, r.Value)
	if err != nil {
		return errors.Wrapf(err, "failed to write record to %s", w.tmpPath)
	}

	return nil
}

// Finalize flushes and closes the working file, then renames it to the
// final name. A rename failure means the run must be treated as failed.
func (w *LineWriter) Finalize() error {
	if err := w.buf.Flush(); err != nil {
		return errors.Wrapf(err, "failed to flush %s", w.tmpPath)
	}

	if err := w.file.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", w.tmpPath)
	}

	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		return errors.Wrapf(err, "failed to rename %s to %s", w.tmpPath, w.finalPath)
	}

	w.finalized = true
	return nil
}

// Discard closes the working file without promoting it. An interrupted
// run leaves at most the working file behind.
func (w *LineWriter) Discard() error {
	if w.finalized {
		return nil
	}

	return w.file.Close()
}
