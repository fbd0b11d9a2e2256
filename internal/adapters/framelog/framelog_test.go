package framelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
)

func TestJournalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(dir, "can0")
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	ts := time.Unix(1693123456, 123456000)
	frames := []can.Frame{
		can.MustFrame(0x100, []byte{0x58, 0x17, 0xDA, 0x41, 0xEB, 0xF5, 0x77, 0xBE}),
		can.MustFrame(0x1337, []byte{3, 0, 2, 0, 0xFE, 0}),
		can.MustFrame(0x123, nil),
	}
	for i, f := range frames {
		if err := j.Append(ts.Add(time.Duration(i)*time.Second), f); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("journal dir = %v entries, err %v", len(entries), err)
	}

	records, err := ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	if len(records) != len(frames) {
		t.Fatalf("got %d records, want %d", len(records), len(frames))
	}
	for i, rec := range records {
		if rec.Frame != frames[i] {
			t.Errorf("record %d frame = %v, want %v", i, rec.Frame, frames[i])
		}
		wantTime := ts.Add(time.Duration(i) * time.Second)
		if !rec.Time.Equal(wantTime) {
			t.Errorf("record %d time = %v, want %v", i, rec.Time, wantTime)
		}
	}
}

func TestJournalLineFormat(t *testing.T) {
	dir := t.TempDir()
	j, err := NewFileJournal(dir, "vcan0")
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	if err := j.Append(time.Unix(1693123456, 123456000), can.MustFrame(0x1AB, []byte{0xDE, 0xAD})); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	got := strings.TrimSpace(string(raw))
	want := "(1693123456.123456) vcan0 1AB#DEAD"
	if got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestReadExtendedIdentifier(t *testing.T) {
	records, err := Read(strings.NewReader("(1.000000) can0 00000123#0102\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	f := records[0].Frame
	if !f.Extended || f.ID != 0x123 {
		t.Errorf("frame = %+v, want extended 0x123", f)
	}
	// A 3-digit identifier with the same value stays standard.
	records, err = Read(strings.NewReader("(1.000000) can0 123#0102\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if records[0].Frame.Extended {
		t.Errorf("frame = %+v, want standard", records[0].Frame)
	}
}

func TestReadMalformedLine(t *testing.T) {
	for _, line := range []string{
		"not a candump line",
		"(12.000000) can0 123",
		"(12.000000) can0 ZZZ#00",
		"(12.000000) can0 123#0102030405060708090A",
		"(nope) can0 123#00",
	} {
		if _, err := Read(strings.NewReader(line + "\n")); err == nil {
			t.Errorf("Read(%q) succeeded, want error", line)
		}
	}
}

func TestAppendAfterClose(t *testing.T) {
	j, err := NewFileJournal(t.TempDir(), "can0")
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := j.Append(time.Now(), can.MustFrame(0x123, nil)); err == nil {
		t.Fatal("append after close succeeded, want error")
	}
}
