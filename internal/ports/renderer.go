package ports

import "github.com/Engineers-of-Innovation/eoi-can/internal/snapshot"

// Renderer presents the telemetry snapshot to a consumer: a terminal view, a
// dashboard feed, a test recorder. Render is called from the pipeline's tick
// loop and must not retain the snapshot pointer past the call.
type Renderer interface {
	Render(s *snapshot.Snapshot) error
	Name() string
}
