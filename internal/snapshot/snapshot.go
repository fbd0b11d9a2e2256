// Package snapshot folds decoded telemetry messages into the aggregate view
// of vehicle state the consumers read. Every field ages independently: a
// subsystem that stops broadcasting degrades its own fields to absent while
// the rest of the snapshot stays live.
package snapshot

import (
	"math"
	"net/netip"
	"time"

	"github.com/Engineers-of-Innovation/eoi-can/internal/codec"
	"github.com/Engineers-of-Innovation/eoi-can/internal/stale"
)

const (
	// NumCells is the battery cell count.
	NumCells = 14
	// NumPanels is the number of wired solar panel channels.
	NumPanels = 11
	// NumTemperatures is the battery pack temperature sensor count.
	NumTemperatures = 4
)

// PanelPower is the derived reading for one solar panel: input power in
// watts plus the voltage/current pair it was computed from.
type PanelPower struct {
	Power   float32
	Voltage float32
	Current float32
}

// panelKey identifies one MPPT input channel on the bus.
type panelKey struct {
	MpptID  uint8
	Channel uint8
}

// panelIndex maps bus-side (MPPT device, channel) pairs to flat panel
// slots. This is wiring knowledge of the vehicle: which controller input a
// physical panel is connected to. Pairs not listed here are unused hardware
// channels and are ignored on ingest.
var panelIndex = map[panelKey]int{
	{MpptID: 2, Channel: 1}: 0,
	{MpptID: 2, Channel: 2}: 1,
	{MpptID: 2, Channel: 3}: 2,
	{MpptID: 5, Channel: 0}: 3,
	{MpptID: 5, Channel: 1}: 4,
	{MpptID: 5, Channel: 2}: 5,
	{MpptID: 4, Channel: 1}: 6,
	{MpptID: 4, Channel: 2}: 7,
	{MpptID: 6, Channel: 0}: 8,
	{MpptID: 6, Channel: 1}: 9,
	{MpptID: 6, Channel: 2}: 10,
}

// PanelSlot returns the flat panel index wired to the given MPPT channel,
// or false when the channel is unused.
func PanelSlot(mpptID, channel uint8) (int, bool) {
	idx, ok := panelIndex[panelKey{MpptID: mpptID, Channel: channel}]
	return idx, ok
}

// Snapshot is the aggregate of all published telemetry fields. It is
// single-owner: only the consumer task calls Ingest and the setters, so the
// struct itself needs no locking (see the pipeline for the synchronization
// boundary). Create one with New and keep it for the process lifetime.
type Snapshot struct {
	SpeedKmh          stale.Value[float32]
	GnssFix           stale.Value[bool]
	GnssTime          stale.Value[codec.GnssDateTime]
	StateOfCharge     stale.Value[float32]
	TimeToEmptyMin    stale.Value[uint16]
	CellVoltages      [NumCells]stale.Value[float32]
	CurrentPack       stale.Value[float32]
	CurrentIn         stale.Value[float32]
	CurrentOutMotor   stale.Value[float32]
	CurrentOutAux     stale.Value[float32]
	BatteryVoltage    stale.Value[float32]
	Temperatures      [NumTemperatures]stale.Value[int8]
	BatteryUptimeMs   stale.Value[uint32]
	BatteryErrorFlags stale.Value[uint32]
	BalancingStatus   stale.Value[uint16]
	BatteryState      stale.Value[uint8]
	ChargeState       stale.Value[uint8]
	DischargeState    stale.Value[uint8]
	MotorInputVoltage stale.Value[float32]
	MotorInputCurrent stale.Value[float32]
	MotorCurrent      stale.Value[float32]
	MotorDutyCycle    stale.Value[float32]
	MotorRPM          stale.Value[int32]
	MotorFetTemp      stale.Value[float32]
	MotorTemp         stale.Value[float32]
	ThrottleValue     stale.Value[float32]
	ThrottleErrors    stale.Value[codec.ThrottleErrors]
	Panels            [NumPanels]stale.Value[PanelPower]
	IPAddress         stale.Value[netip.Addr]
	DisplayCharge     stale.Value[float32]
	DisplayIsCharging stale.Value[bool]
}

// New returns a snapshot whose fields all expire after ttl without a
// refresh. Non-positive ttl falls back to stale.DefaultTTL.
func New(ttl time.Duration) *Snapshot {
	s := &Snapshot{}
	s.SpeedKmh = stale.New[float32](ttl)
	s.GnssFix = stale.New[bool](ttl)
	s.GnssTime = stale.New[codec.GnssDateTime](ttl)
	s.StateOfCharge = stale.New[float32](ttl)
	s.TimeToEmptyMin = stale.New[uint16](ttl)
	for i := range s.CellVoltages {
		s.CellVoltages[i] = stale.New[float32](ttl)
	}
	s.CurrentPack = stale.New[float32](ttl)
	s.CurrentIn = stale.New[float32](ttl)
	s.CurrentOutMotor = stale.New[float32](ttl)
	s.CurrentOutAux = stale.New[float32](ttl)
	s.BatteryVoltage = stale.New[float32](ttl)
	for i := range s.Temperatures {
		s.Temperatures[i] = stale.New[int8](ttl)
	}
	s.BatteryUptimeMs = stale.New[uint32](ttl)
	s.BatteryErrorFlags = stale.New[uint32](ttl)
	s.BalancingStatus = stale.New[uint16](ttl)
	s.BatteryState = stale.New[uint8](ttl)
	s.ChargeState = stale.New[uint8](ttl)
	s.DischargeState = stale.New[uint8](ttl)
	s.MotorInputVoltage = stale.New[float32](ttl)
	s.MotorInputCurrent = stale.New[float32](ttl)
	s.MotorCurrent = stale.New[float32](ttl)
	s.MotorDutyCycle = stale.New[float32](ttl)
	s.MotorRPM = stale.New[int32](ttl)
	s.MotorFetTemp = stale.New[float32](ttl)
	s.MotorTemp = stale.New[float32](ttl)
	s.ThrottleValue = stale.New[float32](ttl)
	s.ThrottleErrors = stale.New[codec.ThrottleErrors](ttl)
	for i := range s.Panels {
		s.Panels[i] = stale.New[PanelPower](ttl)
	}
	s.IPAddress = stale.New[netip.Addr](ttl)
	s.DisplayCharge = stale.New[float32](ttl)
	s.DisplayIsCharging = stale.New[bool](ttl)
	return s
}

// Ingest routes one decoded message into the fields it updates. Messages
// that carry bridge-only data (GNSS position, motor energy counters,
// throttle commands and config) are accepted and discarded.
func (s *Snapshot) Ingest(msg codec.Message) {
	switch m := msg.(type) {
	case codec.BatteryPackAuxCurrent:
		s.CurrentPack.Update(m.PackCurrent)
		s.CurrentOutAux.Update(m.AuxCurrent)

	case codec.BatteryChargeDischargeCurrent:
		s.CurrentIn.Update(m.ChargeCurrent)
		s.CurrentOutMotor.Update(m.DischargeCurrent)

	case codec.BatterySocFlags:
		s.StateOfCharge.Update(m.StateOfCharge)
		s.BatteryErrorFlags.Update(m.ErrorFlags)
		s.BalancingStatus.Update(m.BalancingStatus)

	case codec.BatteryCellVoltageGroup:
		for i, v := range m.Voltages {
			if m.Offset+i < NumCells {
				s.CellVoltages[m.Offset+i].Update(v)
			}
		}

	case codec.BatteryCellsPackStack:
		s.CellVoltages[12].Update(m.Voltages[0])
		s.CellVoltages[13].Update(m.Voltages[1])
		s.BatteryVoltage.Update(m.PackVoltage)

	case codec.BatteryTemperaturesStates:
		for i, temp := range m.Temperatures {
			s.Temperatures[i].Update(temp)
		}
		s.BatteryState.Update(m.BatteryState)
		s.ChargeState.Update(m.ChargeState)
		s.DischargeState.Update(m.DischargeState)

	case codec.BatteryUptime:
		s.BatteryUptimeMs.Update(m.UptimeMs)

	case codec.MotorStatus1:
		s.MotorRPM.Update(m.RPM)
		s.MotorCurrent.Update(m.Current)
		s.MotorDutyCycle.Update(m.DutyCycle)

	case codec.MotorStatus4:
		s.MotorInputCurrent.Update(m.TotalInputCurrent)
		s.MotorFetTemp.Update(m.FetTemperature)
		s.MotorTemp.Update(m.MotorTemperature)

	case codec.MotorStatus5:
		s.MotorInputVoltage.Update(m.InputVoltage)

	case codec.ThrottleStatus:
		s.ThrottleValue.Update(m.Value)
		s.ThrottleErrors.Update(m.Errors)

	case codec.MpptChannelPower:
		idx, ok := PanelSlot(m.MpptID, m.Channel)
		if !ok {
			return
		}
		s.Panels[idx].Update(PanelPower{
			Power:   m.VoltageIn * m.CurrentIn,
			Voltage: m.VoltageIn,
			Current: m.CurrentIn,
		})

	case codec.GnssSpeedHeading:
		s.SpeedKmh.Update(m.SpeedKmh)

	case codec.GnssStatus:
		s.GnssFix.Update(m.Fix != 0)

	case codec.GnssDateTime:
		s.GnssTime.Update(m)
	}
}

// SetIPAddress records the host's current address, supplied by the host
// environment rather than the bus.
func (s *Snapshot) SetIPAddress(addr netip.Addr) {
	s.IPAddress.Update(addr)
}

// SetTimeToEmpty records the estimated remaining runtime in minutes,
// computed outside the bus path.
func (s *Snapshot) SetTimeToEmpty(minutes uint16) {
	s.TimeToEmptyMin.Update(minutes)
}

// SetDisplayBattery records the dashboard's own battery state, supplied by
// the host environment rather than the bus.
func (s *Snapshot) SetDisplayBattery(soc float32, charging bool) {
	s.DisplayCharge.Update(soc)
	s.DisplayIsCharging.Update(charging)
}

// Derived values. All of these are computed at read time; a stale input
// poisons the result to NaN so a frozen number is never displayed as live.

// nan32 is the float32 read with NaN standing in for an absent value.
func nan32(v *stale.Value[float32]) float32 {
	if val, ok := v.Get(); ok {
		return val
	}
	return float32(math.NaN())
}

// NetPower is the battery-side power balance in watts: positive charging,
// negative discharging. NaN when the voltage or any current leg is stale.
func (s *Snapshot) NetPower() float32 {
	current := nan32(&s.CurrentIn) + nan32(&s.CurrentOutMotor) + nan32(&s.CurrentOutAux)
	return nan32(&s.BatteryVoltage) * current
}

// InputPower is solar charge power into the battery in watts.
func (s *Snapshot) InputPower() float32 {
	return nan32(&s.BatteryVoltage) * nan32(&s.CurrentIn)
}

// MotorOutputPower is power out of the battery into the motor in watts.
func (s *Snapshot) MotorOutputPower() float32 {
	return nan32(&s.BatteryVoltage) * nan32(&s.CurrentOutMotor)
}

// AuxOutputPower is power out of the battery into peripherals in watts.
func (s *Snapshot) AuxOutputPower() float32 {
	return nan32(&s.BatteryVoltage) * nan32(&s.CurrentOutAux)
}

// MotorInputPower is power measured on the motor controller's input side.
func (s *Snapshot) MotorInputPower() float32 {
	return nan32(&s.MotorInputVoltage) * nan32(&s.MotorInputCurrent)
}

// CellVoltageStats returns min, max and average over the currently valid
// cell voltages. All NaN when no cell is valid.
func (s *Snapshot) CellVoltageStats() (min, max, avg float32) {
	nan := float32(math.NaN())
	min, max, avg = nan, nan, nan
	var sum float32
	var n int
	for i := range s.CellVoltages {
		v, ok := s.CellVoltages[i].Get()
		if !ok {
			continue
		}
		if n == 0 || v < min {
			min = v
		}
		if n == 0 || v > max {
			max = v
		}
		sum += v
		n++
	}
	if n > 0 {
		avg = sum / float32(n)
	}
	return min, max, avg
}

// TemperatureStats returns min, max and average over the currently valid
// pack temperatures. All NaN when none is valid.
func (s *Snapshot) TemperatureStats() (min, max, avg float32) {
	nan := float32(math.NaN())
	min, max, avg = nan, nan, nan
	var sum float32
	var n int
	for i := range s.Temperatures {
		t, ok := s.Temperatures[i].Get()
		if !ok {
			continue
		}
		v := float32(t)
		if n == 0 || v < min {
			min = v
		}
		if n == 0 || v > max {
			max = v
		}
		sum += v
		n++
	}
	if n > 0 {
		avg = sum / float32(n)
	}
	return min, max, avg
}

// FreshFields counts the currently valid cells, an observability signal for
// how much of the snapshot is live.
func (s *Snapshot) FreshFields() int {
	n := 0
	for _, valid := range []bool{
		s.SpeedKmh.Valid(), s.GnssFix.Valid(), s.GnssTime.Valid(),
		s.StateOfCharge.Valid(), s.TimeToEmptyMin.Valid(),
		s.CurrentPack.Valid(), s.CurrentIn.Valid(),
		s.CurrentOutMotor.Valid(), s.CurrentOutAux.Valid(),
		s.BatteryVoltage.Valid(), s.BatteryUptimeMs.Valid(),
		s.BatteryErrorFlags.Valid(), s.BalancingStatus.Valid(),
		s.BatteryState.Valid(), s.ChargeState.Valid(), s.DischargeState.Valid(),
		s.MotorInputVoltage.Valid(), s.MotorInputCurrent.Valid(),
		s.MotorCurrent.Valid(), s.MotorDutyCycle.Valid(), s.MotorRPM.Valid(),
		s.MotorFetTemp.Valid(), s.MotorTemp.Valid(),
		s.ThrottleValue.Valid(), s.ThrottleErrors.Valid(),
		s.IPAddress.Valid(), s.DisplayCharge.Valid(), s.DisplayIsCharging.Valid(),
	} {
		if valid {
			n++
		}
	}
	for i := range s.CellVoltages {
		if s.CellVoltages[i].Valid() {
			n++
		}
	}
	for i := range s.Temperatures {
		if s.Temperatures[i].Valid() {
			n++
		}
	}
	for i := range s.Panels {
		if s.Panels[i].Valid() {
			n++
		}
	}
	return n
}
