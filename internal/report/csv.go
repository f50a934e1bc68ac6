// Package report writes the engine's post-run stream-stat attribution
// out as a flat file, adapted from the teacher's CsvResultRepository.
package report

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"

	"github.com/l2dy/ostinato/internal/txengine"
)

// StreamStatsWriter appends one row per stream-guid to a CSV file,
// opened once and flushed after every write, matching the teacher's
// open-once/flush-per-row CsvResultRepository.
type StreamStatsWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewStreamStatsWriter creates (or truncates) filename and writes the
// header row.
func NewStreamStatsWriter(filename string) (*StreamStatsWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"StreamGuid", "TxPkts", "TxBytes"}); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	return &StreamStatsWriter{file: f, writer: w}, nil
}

// WriteAll writes one row per stream in totals, in ascending guid order
// for reproducible output.
func (w *StreamStatsWriter) WriteAll(totals map[uint32]txengine.StreamTotals) error {
	guids := make([]uint32, 0, len(totals))
	for guid := range totals {
		guids = append(guids, guid)
	}
	sort.Slice(guids, func(i, j int) bool { return guids[i] < guids[j] })

	for _, guid := range guids {
		t := totals[guid]
		row := []string{
			strconv.FormatUint(uint64(guid), 10),
			strconv.FormatUint(t.TxPkts, 10),
			strconv.FormatUint(t.TxBytes, 10),
		}
		if err := w.writer.Write(row); err != nil {
			return err
		}
	}
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and closes the underlying file.
func (w *StreamStatsWriter) Close() error {
	w.writer.Flush()
	return w.file.Close()
}
