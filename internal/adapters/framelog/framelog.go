// Package framelog journals raw bus traffic to disk in candump text form,
// one frame per line:
//
//	(1693123456.123456) can0 123#1122334455667788
//
// Extended identifiers use eight hex digits. The format is line-oriented so a
// session cut short by power loss loses at most its final line, and files
// interchange with the usual can-utils tooling.
package framelog

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
	"github.com/Engineers-of-Innovation/eoi-can/internal/ports"
)

// Record is one journaled frame with its capture time.
type Record struct {
	Time  time.Time
	Frame can.Frame
}

type FileJournal struct {
	mu     sync.Mutex
	iface  string
	file   *os.File
	writer *bufio.Writer
}

// NewFileJournal opens (or creates) a journal file under dir, named by the
// current time so successive sessions never clobber each other. iface is the
// interface label written into each line.
func NewFileJournal(dir, iface string) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("candump-%s.log", time.Now().Format("2006-01-02_150405"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileJournal{
		iface:  iface,
		file:   f,
		writer: bufio.NewWriterSize(f, 64<<10),
	}, nil
}

func (j *FileJournal) Append(ts time.Time, f can.Frame) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return os.ErrClosed
	}
	_, err := fmt.Fprintf(j.writer, "(%d.%06d) %s %s#%s\n",
		ts.Unix(), ts.Nanosecond()/1000, j.iface, formatID(f), formatData(f))
	return err
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	flushErr := j.writer.Flush()
	closeErr := j.file.Close()
	j.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func formatID(f can.Frame) string {
	if f.Extended {
		return fmt.Sprintf("%08X", f.ID)
	}
	return fmt.Sprintf("%03X", f.ID)
}

func formatData(f can.Frame) string {
	return strings.ToUpper(hex.EncodeToString(f.Payload()))
}

// Read parses a journal stream back into records, skipping blank lines.
// A malformed line fails the whole read; a journal is either a faithful
// capture or not worth replaying.
func Read(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ReadFile is Read over a file on disk.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func parseLine(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return Record{}, fmt.Errorf("want 3 fields, got %d", len(fields))
	}

	tsField := strings.Trim(fields[0], "()")
	sec, usec, ok := strings.Cut(tsField, ".")
	if !ok {
		return Record{}, fmt.Errorf("malformed timestamp %q", fields[0])
	}
	secs, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("malformed timestamp %q", fields[0])
	}
	micros, err := strconv.ParseInt(usec, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("malformed timestamp %q", fields[0])
	}

	idField, dataField, ok := strings.Cut(fields[2], "#")
	if !ok {
		return Record{}, fmt.Errorf("malformed frame %q", fields[2])
	}
	id, err := strconv.ParseUint(idField, 16, 32)
	if err != nil {
		return Record{}, fmt.Errorf("malformed identifier %q", idField)
	}
	data, err := hex.DecodeString(dataField)
	if err != nil {
		return Record{}, fmt.Errorf("malformed payload %q", dataField)
	}

	// Eight hex digits marks an extended identifier even in the standard
	// range, matching how the line was written.
	var frame can.Frame
	if len(idField) == 8 {
		frame, err = can.NewExtendedFrame(uint32(id), data)
	} else {
		frame, err = can.NewFrame(uint32(id), data)
	}
	if err != nil {
		return Record{}, err
	}

	return Record{
		Time:  time.Unix(secs, micros*1000),
		Frame: frame,
	}, nil
}

var _ ports.FrameJournal = (*FileJournal)(nil)
