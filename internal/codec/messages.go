// Package codec decodes raw CAN frames from the vehicle bus into typed
// telemetry messages. The identifier space is shared by several subsystems
// with different wire conventions: the battery unit and GNSS transmitter use
// little-endian fields, the motor controller and throttle use big-endian
// fixed-point fields. Decode ignores anything it does not recognize.
package codec

// Message is the decoded telemetry union. Concrete types are the structs in
// this file; consumers dispatch with a type switch.
type Message interface {
	isMessage()
}

// Battery unit, IDs 0x100-0x108.

// BatteryPackAuxCurrent carries the total pack current and the peripheral
// ("aux") rail current in amperes.
type BatteryPackAuxCurrent struct {
	PackCurrent float32
	AuxCurrent  float32
}

// BatteryChargeDischargeCurrent carries the charge (inbound) and discharge
// (outbound, negative) currents in amperes.
type BatteryChargeDischargeCurrent struct {
	ChargeCurrent    float32
	DischargeCurrent float32
}

// BatterySocFlags carries the state of charge in percent plus raw error and
// balancing bit fields.
type BatterySocFlags struct {
	StateOfCharge   float32
	ErrorFlags      uint32
	BalancingStatus uint16
}

// BatteryCellVoltageGroup carries four consecutive cell voltages in volts.
// Offset is the index of the first cell (0, 4 or 8).
type BatteryCellVoltageGroup struct {
	Offset   int
	Voltages [4]float32
}

// BatteryCellsPackStack carries cells 13-14 plus the pack and stack voltages,
// all in volts.
type BatteryCellsPackStack struct {
	Voltages     [2]float32
	PackVoltage  float32
	StackVoltage float32
}

// BatteryTemperaturesStates carries the four pack temperature sensors, the
// monitor IC temperature (degrees C) and three raw state bytes.
type BatteryTemperaturesStates struct {
	Temperatures   [4]int8
	ICTemperature  int8
	BatteryState   uint8
	ChargeState    uint8
	DischargeState uint8
}

// BatteryUptime carries the battery controller uptime in milliseconds.
type BatteryUptime struct {
	UptimeMs uint32
}

// Motor controller (VESC-style status broadcasts), big-endian band.

type MotorStatus1 struct {
	RPM       int32
	Current   float32 // amperes
	DutyCycle float32 // percent
}

type MotorStatus2 struct {
	AmpHoursUsed      float32
	AmpHoursGenerated float32
}

type MotorStatus3 struct {
	WattHoursUsed      float32
	WattHoursGenerated float32
}

type MotorStatus4 struct {
	FetTemperature     float32
	MotorTemperature   float32
	TotalInputCurrent  float32
	CurrentPIDPosition float32
}

type MotorStatus5 struct {
	InputVoltage float32
	Tachometer   int32
}

// Throttle, big-endian band.

// ThrottleCommandKind distinguishes the three command messages the throttle
// sends to the motor controller.
type ThrottleCommandKind uint8

const (
	ThrottleCmdDutyCycle ThrottleCommandKind = iota
	ThrottleCmdCurrent
	ThrottleCmdRPM
)

// ThrottleCommand is a setpoint sent from throttle to motor controller.
type ThrottleCommand struct {
	Kind  ThrottleCommandKind
	Value float32
}

// ThrottleErrors is the unpacked error byte of a throttle status message.
type ThrottleErrors struct {
	Any            bool
	TWI            uint8 // low 3 bits, I2C sub-code
	NoEEPROM       bool
	GainClipping   bool
	GainInvalid    bool
	DeadmanMissing bool
	ImpedanceHigh  bool
}

// HasError reports whether any error bit is set.
func (e ThrottleErrors) HasError() bool { return e.Any }

// ThrottleStatus is the 8-byte periodic throttle report.
type ThrottleStatus struct {
	Value      float32 // percent, negative for reverse
	RawAngle   int16
	RawDeadman int16
	Gain       uint8
	Errors     ThrottleErrors
}

// ThrottleControlType enumerates the throttle's configured control mode.
// Unrecognized wire values map to ThrottleControlUnknown rather than failing.
type ThrottleControlType uint8

const (
	ThrottleControlDutyCycle         ThrottleControlType = 0
	ThrottleControlFilteredDutyCycle ThrottleControlType = 1
	ThrottleControlCurrent           ThrottleControlType = 2
	ThrottleControlRPM               ThrottleControlType = 3
	ThrottleControlCurrentRelative   ThrottleControlType = 4
	ThrottleControlUnknown           ThrottleControlType = 255
)

// ThrottleConfig is the 6-byte throttle configuration report, sharing its
// identifier with ThrottleStatus and disambiguated by payload length.
type ThrottleConfig struct {
	ControlType   ThrottleControlType
	LeverForward  int16
	LeverBackward int16
}

// MPPT solar charge controllers, range band 0x700-0x77F.

// MpptChannelPower is the per-channel input side of one MPPT device.
type MpptChannelPower struct {
	MpptID    uint8
	Channel   uint8
	VoltageIn float32
	CurrentIn float32
}

// MpptChannelState is the per-channel tracking state.
type MpptChannelState struct {
	MpptID         uint8
	Channel        uint8
	DutyCycle      uint16
	Algorithm      uint8
	AlgorithmState uint8
	ChannelActive  bool
}

// MpptOutputPower is the aggregate output side of one MPPT device.
type MpptOutputPower struct {
	MpptID     uint8
	VoltageOut float32
	CurrentOut float32
}

// MpptStatus is the device status/temperature report.
type MpptStatus struct {
	MpptID           uint8
	VoltageOutSwitch float32
	Temperature      int16
	State            uint8
	PwmEnabled       bool
	SwitchOn         bool
}

// GNSS receiver, IDs 0x200-0x204.

type GnssStatus struct {
	Fix      uint8
	Sats     uint8
	SatsUsed uint8
}

type GnssSpeedHeading struct {
	SpeedKmh   float32
	HeadingDeg float32
}

type GnssLatitude struct {
	Degrees float64
}

type GnssLongitude struct {
	Degrees float64
}

type GnssDateTime struct {
	Year    uint16
	Month   uint8
	Day     uint8
	Hours   uint8
	Minutes uint8
	Seconds uint8
}

func (BatteryPackAuxCurrent) isMessage()         {}
func (BatteryChargeDischargeCurrent) isMessage() {}
func (BatterySocFlags) isMessage()               {}
func (BatteryCellVoltageGroup) isMessage()       {}
func (BatteryCellsPackStack) isMessage()         {}
func (BatteryTemperaturesStates) isMessage()     {}
func (BatteryUptime) isMessage()                 {}
func (MotorStatus1) isMessage()                  {}
func (MotorStatus2) isMessage()                  {}
func (MotorStatus3) isMessage()                  {}
func (MotorStatus4) isMessage()                  {}
func (MotorStatus5) isMessage()                  {}
func (ThrottleCommand) isMessage()               {}
func (ThrottleStatus) isMessage()                {}
func (ThrottleConfig) isMessage()                {}
func (MpptChannelPower) isMessage()              {}
func (MpptChannelState) isMessage()              {}
func (MpptOutputPower) isMessage()               {}
func (MpptStatus) isMessage()                    {}
func (GnssStatus) isMessage()                    {}
func (GnssSpeedHeading) isMessage()              {}
func (GnssLatitude) isMessage()                  {}
func (GnssLongitude) isMessage()                 {}
func (GnssDateTime) isMessage()                  {}
