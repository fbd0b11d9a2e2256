// Package sink persists periodic telemetry history to TimescaleDB. One row
// per snapshot tick; stale fields are stored as NULL rather than a frozen
// number.
package sink

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/Engineers-of-Innovation/eoi-can/internal/ports"
	"github.com/Engineers-of-Innovation/eoi-can/internal/snapshot"
)

type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) WriteSnapshot(ts time.Time, s *snapshot.Snapshot) error {
	if s == nil {
		return nil
	}

	cells, err := json.Marshal(validCellVoltages(s))
	if err != nil {
		return fmt.Errorf("marshal cell voltages: %w", err)
	}
	panels, err := json.Marshal(validPanels(s))
	if err != nil {
		return fmt.Errorf("marshal panels: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (ts, speed_kmh, soc_pct, battery_v, current_in_a, current_motor_a, current_aux_a, net_power_w, motor_rpm, throttle_pct, cell_voltages, panels) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) ON CONFLICT (ts) DO NOTHING`, t.tableName)

	_, err = t.db.Exec(query,
		ts,
		nullF32(s.SpeedKmh.Get()),
		nullF32(s.StateOfCharge.Get()),
		nullF32(s.BatteryVoltage.Get()),
		nullF32(s.CurrentIn.Get()),
		nullF32(s.CurrentOutMotor.Get()),
		nullF32(s.CurrentOutAux.Get()),
		nanToNull(s.NetPower()),
		nullI32(s.MotorRPM.Get()),
		nullF32(s.ThrottleValue.Get()),
		cells,
		panels,
	)
	return err
}

// validCellVoltages maps cell index to voltage for the cells inside TTL.
func validCellVoltages(s *snapshot.Snapshot) map[string]float32 {
	out := make(map[string]float32)
	for i := range s.CellVoltages {
		if v, ok := s.CellVoltages[i].Get(); ok {
			out[fmt.Sprintf("cell_%02d", i+1)] = v
		}
	}
	return out
}

func validPanels(s *snapshot.Snapshot) map[string]float32 {
	out := make(map[string]float32)
	for i := range s.Panels {
		if p, ok := s.Panels[i].Get(); ok {
			out[fmt.Sprintf("panel_%02d", i)] = p.Power
		}
	}
	return out
}

func nullF32(v float32, ok bool) sql.NullFloat64 {
	if !ok {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(v), Valid: true}
}

func nullI32(v int32, ok bool) sql.NullInt64 {
	if !ok {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func nanToNull(v float32) sql.NullFloat64 {
	if math.IsNaN(float64(v)) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(v), Valid: true}
}

var _ ports.HistorySink = (*TimescaleSink)(nil)
