package codec

import (
	"encoding/binary"
	"math"

	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
)

// MPPT identifier band: 8 possible device addresses x 16 info fields.
const (
	mpptBaseAddress = 0x700
	mpptMaxDevices  = 8
	mpptInfoFields  = 16
	mpptStopAddress = mpptBaseAddress + mpptMaxDevices*mpptInfoFields - 1
)

// Decode turns a raw frame into a telemetry message, or nil when the frame
// is not one of ours. It is pure and total: truncated payloads and unknown
// identifiers yield nil, never an error or panic. A shared bus carries many
// frames this consumer must ignore, so absence of a result is the only
// failure signal.
func Decode(f can.Frame) Message {
	data := f.Payload()

	switch id := f.ID; {
	case id == 0x100:
		pack, ok1 := leF32(data, 0)
		aux, ok2 := leF32(data, 4)
		if !ok1 || !ok2 {
			return nil
		}
		return BatteryPackAuxCurrent{PackCurrent: pack, AuxCurrent: aux}

	case id == 0x101:
		charge, ok1 := leF32(data, 0)
		discharge, ok2 := leF32(data, 4)
		if !ok1 || !ok2 {
			return nil
		}
		// Discharge is broadcast positive; sign it as outbound.
		return BatteryChargeDischargeCurrent{ChargeCurrent: charge, DischargeCurrent: -discharge}

	case id == 0x102:
		soc, ok1 := leU16(data, 0)
		flags, ok2 := leU32(data, 2)
		balancing, ok3 := leU16(data, 6)
		if !ok1 || !ok2 || !ok3 {
			return nil
		}
		return BatterySocFlags{
			StateOfCharge:   float32(soc) / 100.0,
			ErrorFlags:      flags,
			BalancingStatus: balancing,
		}

	case id == 0x103, id == 0x104, id == 0x105:
		group := BatteryCellVoltageGroup{Offset: int(id-0x103) * 4}
		for i := range group.Voltages {
			raw, ok := leU16(data, i*2)
			if !ok {
				return nil
			}
			group.Voltages[i] = float32(raw) / 1000.0
		}
		return group

	case id == 0x106:
		c13, ok1 := leU16(data, 0)
		c14, ok2 := leU16(data, 2)
		pack, ok3 := leU16(data, 4)
		stack, ok4 := leU16(data, 6)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil
		}
		return BatteryCellsPackStack{
			Voltages:     [2]float32{float32(c13) / 1000.0, float32(c14) / 1000.0},
			PackVoltage:  float32(pack) / 1000.0,
			StackVoltage: float32(stack) / 1000.0,
		}

	case id == 0x107:
		if len(data) < 8 {
			return nil
		}
		return BatteryTemperaturesStates{
			Temperatures:   [4]int8{int8(data[0]), int8(data[1]), int8(data[2]), int8(data[3])},
			ICTemperature:  int8(data[4]),
			BatteryState:   data[5],
			ChargeState:    data[6],
			DischargeState: data[7],
		}

	case id == 0x108:
		uptime, ok := leU32(data, 0)
		if !ok {
			return nil
		}
		return BatteryUptime{UptimeMs: uptime}

	case id == 0x200:
		if len(data) < 3 {
			return nil
		}
		return GnssStatus{Fix: data[0], Sats: data[1], SatsUsed: data[2]}

	case id == 0x201:
		speed, ok1 := leF32(data, 0)
		heading, ok2 := leF32(data, 4)
		if !ok1 || !ok2 {
			return nil
		}
		return GnssSpeedHeading{SpeedKmh: speed, HeadingDeg: heading}

	case id == 0x202:
		deg, ok := leF64(data, 0)
		if !ok {
			return nil
		}
		return GnssLatitude{Degrees: deg}

	case id == 0x203:
		deg, ok := leF64(data, 0)
		if !ok {
			return nil
		}
		return GnssLongitude{Degrees: deg}

	case id == 0x204:
		year, ok := leU16(data, 0)
		if !ok || len(data) < 7 {
			return nil
		}
		return GnssDateTime{
			Year:    year,
			Month:   data[2],
			Day:     data[3],
			Hours:   data[4],
			Minutes: data[5],
			Seconds: data[6],
		}

	case id >= mpptBaseAddress && id <= mpptStopAddress:
		return decodeMppt(id, data)

	case id == 0x0909:
		rpm, ok1 := beI32(data, 0)
		current, ok2 := beI16(data, 4)
		duty, ok3 := beI16(data, 6)
		if !ok1 || !ok2 || !ok3 {
			return nil
		}
		return MotorStatus1{
			RPM:       rpm,
			Current:   float32(current) / 10.0,
			DutyCycle: float32(duty) / 10.0,
		}

	case id == 0x0E09:
		used, ok1 := beU32(data, 0)
		generated, ok2 := beU32(data, 4)
		if !ok1 || !ok2 {
			return nil
		}
		return MotorStatus2{
			AmpHoursUsed:      float32(used) / 10000.0,
			AmpHoursGenerated: float32(generated) / 10000.0,
		}

	case id == 0x0F09:
		used, ok1 := beU32(data, 0)
		generated, ok2 := beU32(data, 4)
		if !ok1 || !ok2 {
			return nil
		}
		return MotorStatus3{
			WattHoursUsed:      float32(used) / 10000.0,
			WattHoursGenerated: float32(generated) / 10000.0,
		}

	case id == 0x1009:
		fet, ok1 := beI16(data, 0)
		motor, ok2 := beI16(data, 2)
		input, ok3 := beI16(data, 4)
		pid, ok4 := beI16(data, 6)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil
		}
		return MotorStatus4{
			FetTemperature:     float32(fet) / 10.0,
			MotorTemperature:   float32(motor) / 10.0,
			TotalInputCurrent:  float32(input) / 10.0,
			CurrentPIDPosition: float32(pid) / 50.0,
		}

	case id == 0x1B09:
		tacho, ok1 := beI32(data, 0)
		voltage, ok2 := beI16(data, 4)
		if !ok1 || !ok2 {
			return nil
		}
		return MotorStatus5{
			InputVoltage: float32(voltage) / 10.0,
			Tachometer:   tacho,
		}

	case id == 0x0009, id == 0x0109, id == 0x0309:
		raw, ok := beI32(data, 0)
		if !ok {
			return nil
		}
		cmd := ThrottleCommand{Value: float32(raw) / 1000.0}
		switch id {
		case 0x0009:
			cmd.Kind = ThrottleCmdDutyCycle
		case 0x0109:
			cmd.Kind = ThrottleCmdCurrent
		case 0x0309:
			cmd.Kind = ThrottleCmdRPM
		}
		return cmd

	case id == 0x1337 || id == 0x0337:
		return decodeThrottleReport(data)
	}

	return nil
}

func decodeMppt(id uint32, data []byte) Message {
	mpptID := uint8((id >> 4) & 0x7)
	infoField := uint8(id & 0xF)
	channel := infoField >> 1

	switch infoField {
	case 0, 2, 4, 6:
		voltage, ok1 := leF32(data, 0)
		current, ok2 := leF32(data, 4)
		if !ok1 || !ok2 {
			return nil
		}
		return MpptChannelPower{
			MpptID:    mpptID,
			Channel:   channel,
			VoltageIn: voltage,
			CurrentIn: current,
		}

	case 1, 3, 5, 7:
		duty, ok := leU16(data, 0)
		if !ok || len(data) < 5 {
			return nil
		}
		return MpptChannelState{
			MpptID:         mpptID,
			Channel:        channel,
			DutyCycle:      duty,
			Algorithm:      data[2],
			AlgorithmState: data[3],
			ChannelActive:  data[4] != 0,
		}

	case 8:
		voltage, ok1 := leF32(data, 0)
		current, ok2 := leF32(data, 4)
		if !ok1 || !ok2 {
			return nil
		}
		return MpptOutputPower{MpptID: mpptID, VoltageOut: voltage, CurrentOut: current}

	case 9:
		voltage, ok1 := leF32(data, 0)
		temp, ok2 := leI16(data, 4)
		if !ok1 || !ok2 || len(data) < 8 {
			return nil
		}
		return MpptStatus{
			MpptID:           mpptID,
			VoltageOutSwitch: voltage,
			Temperature:      temp,
			State:            data[6],
			PwmEnabled:       data[7]&0b01 != 0,
			SwitchOn:         data[7]&0b10 != 0,
		}
	}

	// Remaining info fields are reserved; not an error.
	return nil
}

// decodeThrottleReport handles the shared status/config identifier: the two
// reports are distinguished by payload length alone.
func decodeThrottleReport(data []byte) Message {
	switch len(data) {
	case 8:
		value, _ := beI16(data, 0)
		angle, _ := beI16(data, 2)
		deadman, _ := beI16(data, 4)
		errByte := data[7]
		return ThrottleStatus{
			Value:      float32(value) / 512.0 * 100.0,
			RawAngle:   angle,
			RawDeadman: deadman,
			Gain:       data[6],
			Errors: ThrottleErrors{
				Any:            errByte != 0,
				TWI:            errByte & 0b111,
				NoEEPROM:       errByte&(1<<3) != 0,
				GainClipping:   errByte&(1<<4) != 0,
				GainInvalid:    errByte&(1<<5) != 0,
				DeadmanMissing: errByte&(1<<6) != 0,
				ImpedanceHigh:  errByte&(1<<7) != 0,
			},
		}
	case 6:
		controlType := ThrottleControlUnknown
		if data[0] <= uint8(ThrottleControlCurrentRelative) {
			controlType = ThrottleControlType(data[0])
		}
		forward, _ := beI16(data, 2)
		backward, _ := beI16(data, 4)
		return ThrottleConfig{
			ControlType:   controlType,
			LeverForward:  forward,
			LeverBackward: backward,
		}
	}
	return nil
}

// Bounds-checked slice readers. Each returns false instead of panicking when
// the payload is too short, which fails the whole decode (no partial result).

func leU16(b []byte, off int) (uint16, bool) {
	if off+2 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b[off:]), true
}

func leI16(b []byte, off int) (int16, bool) {
	v, ok := leU16(b, off)
	return int16(v), ok
}

func leU32(b []byte, off int) (uint32, bool) {
	if off+4 > len(b) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[off:]), true
}

func leF32(b []byte, off int) (float32, bool) {
	v, ok := leU32(b, off)
	return math.Float32frombits(v), ok
}

func leF64(b []byte, off int) (float64, bool) {
	if off+8 > len(b) {
		return 0, false
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b[off:])), true
}

func beU32(b []byte, off int) (uint32, bool) {
	if off+4 > len(b) {
		return 0, false
	}
	return binary.BigEndian.Uint32(b[off:]), true
}

func beI32(b []byte, off int) (int32, bool) {
	v, ok := beU32(b, off)
	return int32(v), ok
}

func beI16(b []byte, off int) (int16, bool) {
	if off+2 > len(b) {
		return 0, false
	}
	return int16(binary.BigEndian.Uint16(b[off:])), true
}
