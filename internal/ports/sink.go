package ports

import (
	"time"

	"github.com/Engineers-of-Innovation/eoi-can/internal/snapshot"
)

// HistorySink persists periodic snapshot rows for after-race analysis.
type HistorySink interface {
	WriteSnapshot(ts time.Time, s *snapshot.Snapshot) error
	Name() string
}
