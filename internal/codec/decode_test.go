package codec

import (
	"math"
	"testing"

	"github.com/Engineers-of-Innovation/eoi-can/internal/can"
)

func frame(t *testing.T, id uint32, data ...byte) can.Frame {
	t.Helper()
	f, err := can.NewFrame(id, data)
	if err != nil {
		t.Fatalf("NewFrame(0x%X): %v", id, err)
	}
	return f
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 0.0005
}

func TestDecodeBatteryPackAuxCurrent(t *testing.T) {
	// Captured from a live pack broadcast.
	msg := Decode(frame(t, 0x100, 0x58, 0x17, 0xDA, 0x41, 0xEB, 0xF5, 0x77, 0xBE))
	got, ok := msg.(BatteryPackAuxCurrent)
	if !ok {
		t.Fatalf("Decode = %T, want BatteryPackAuxCurrent", msg)
	}
	// 9.9765 charge + 17.5270 discharge - 0.2421 aux.
	if !approx(got.PackCurrent, 27.2614) {
		t.Errorf("PackCurrent = %v, want ~27.2614", got.PackCurrent)
	}
	if !approx(got.AuxCurrent, -0.2421) {
		t.Errorf("AuxCurrent = %v, want ~-0.2421", got.AuxCurrent)
	}
}

func TestDecodeBatteryChargeDischargeCurrent(t *testing.T) {
	msg := Decode(frame(t, 0x101, 0xE8, 0x9F, 0x1F, 0x41, 0x50, 0x37, 0x8C, 0x41))
	got, ok := msg.(BatteryChargeDischargeCurrent)
	if !ok {
		t.Fatalf("Decode = %T, want BatteryChargeDischargeCurrent", msg)
	}
	if !approx(got.ChargeCurrent, 9.9765) {
		t.Errorf("ChargeCurrent = %v, want ~9.9765", got.ChargeCurrent)
	}
	// Broadcast positive on the wire, signed negative as outbound.
	if !approx(got.DischargeCurrent, -17.5270) {
		t.Errorf("DischargeCurrent = %v, want ~-17.5270", got.DischargeCurrent)
	}
}

func TestDecodeBatterySocFlags(t *testing.T) {
	msg := Decode(frame(t, 0x102, 0x25, 0x26, 0, 0, 0, 0, 0, 0))
	got, ok := msg.(BatterySocFlags)
	if !ok {
		t.Fatalf("Decode = %T, want BatterySocFlags", msg)
	}
	if got.StateOfCharge != 97.65 {
		t.Errorf("StateOfCharge = %v, want 97.65", got.StateOfCharge)
	}
	if got.ErrorFlags != 0 || got.BalancingStatus != 0 {
		t.Errorf("flags = %v/%v, want 0/0", got.ErrorFlags, got.BalancingStatus)
	}
}

func TestDecodeCellVoltageGroups(t *testing.T) {
	tests := []struct {
		id         uint32
		data       []byte
		wantOffset int
		want       [4]float32
	}{
		{0x103, []byte{0x36, 0x10, 0x2C, 0x10, 0x2D, 0x10, 0x37, 0x10}, 0, [4]float32{4.150, 4.140, 4.141, 4.151}},
		{0x104, []byte{0x34, 0x10, 0x3A, 0x10, 0x30, 0x10, 0x34, 0x10}, 4, [4]float32{4.148, 4.154, 4.144, 4.148}},
		{0x105, []byte{0x38, 0x10, 0x39, 0x10, 0x38, 0x10, 0x34, 0x10}, 8, [4]float32{4.152, 4.153, 4.152, 4.148}},
	}
	for _, tt := range tests {
		msg := Decode(frame(t, tt.id, tt.data...))
		got, ok := msg.(BatteryCellVoltageGroup)
		if !ok {
			t.Fatalf("Decode(0x%X) = %T, want BatteryCellVoltageGroup", tt.id, msg)
		}
		if got.Offset != tt.wantOffset {
			t.Errorf("Decode(0x%X).Offset = %d, want %d", tt.id, got.Offset, tt.wantOffset)
		}
		if got.Voltages != tt.want {
			t.Errorf("Decode(0x%X).Voltages = %v, want %v", tt.id, got.Voltages, tt.want)
		}
	}
}

func TestDecodeCellsPackStack(t *testing.T) {
	msg := Decode(frame(t, 0x106, 0x39, 0x10, 0x31, 0x10, 0xC0, 0xDA, 0x0E, 0xE2))
	got, ok := msg.(BatteryCellsPackStack)
	if !ok {
		t.Fatalf("Decode = %T, want BatteryCellsPackStack", msg)
	}
	if got.Voltages != [2]float32{4.153, 4.145} {
		t.Errorf("Voltages = %v, want [4.153 4.145]", got.Voltages)
	}
	if got.PackVoltage != 56.0 {
		t.Errorf("PackVoltage = %v, want 56.0", got.PackVoltage)
	}
	if got.StackVoltage != 57.87 {
		t.Errorf("StackVoltage = %v, want 57.87", got.StackVoltage)
	}
}

func TestDecodeTemperaturesStates(t *testing.T) {
	msg := Decode(frame(t, 0x107, 0x24, 0x24, 0x26, 0x28, 0x36, 0x06, 0x03, 0x03))
	got, ok := msg.(BatteryTemperaturesStates)
	if !ok {
		t.Fatalf("Decode = %T, want BatteryTemperaturesStates", msg)
	}
	if got.Temperatures != [4]int8{36, 36, 38, 40} {
		t.Errorf("Temperatures = %v, want [36 36 38 40]", got.Temperatures)
	}
	if got.ICTemperature != 54 {
		t.Errorf("ICTemperature = %d, want 54", got.ICTemperature)
	}
	if got.BatteryState != 6 || got.ChargeState != 3 || got.DischargeState != 3 {
		t.Errorf("states = %d/%d/%d, want 6/3/3",
			got.BatteryState, got.ChargeState, got.DischargeState)
	}
}

func TestDecodeBatteryUptime(t *testing.T) {
	msg := Decode(frame(t, 0x108, 0x6C, 0xB0, 0x22, 0x3B))
	got, ok := msg.(BatteryUptime)
	if !ok {
		t.Fatalf("Decode = %T, want BatteryUptime", msg)
	}
	if got.UptimeMs != 992129132 {
		t.Errorf("UptimeMs = %d, want 992129132", got.UptimeMs)
	}
}

func TestDecodeGnss(t *testing.T) {
	msg := Decode(frame(t, 0x200, 3, 12, 8))
	status, ok := msg.(GnssStatus)
	if !ok {
		t.Fatalf("Decode(0x200) = %T, want GnssStatus", msg)
	}
	if status.Fix != 3 || status.Sats != 12 || status.SatsUsed != 8 {
		t.Errorf("GnssStatus = %+v, want Fix 3, Sats 12, SatsUsed 8", status)
	}

	// 21.5 km/h, heading 180 degrees, little-endian floats.
	msg = Decode(frame(t, 0x201, 0x00, 0x00, 0xAC, 0x41, 0x00, 0x00, 0x34, 0x43))
	speed, ok := msg.(GnssSpeedHeading)
	if !ok {
		t.Fatalf("Decode(0x201) = %T, want GnssSpeedHeading", msg)
	}
	if speed.SpeedKmh != 21.5 || speed.HeadingDeg != 180.0 {
		t.Errorf("GnssSpeedHeading = %+v, want 21.5 km/h at 180 deg", speed)
	}

	var latRaw [8]byte
	putLeF64(latRaw[:], 52.37)
	msg = Decode(frame(t, 0x202, latRaw[:]...))
	lat, ok := msg.(GnssLatitude)
	if !ok {
		t.Fatalf("Decode(0x202) = %T, want GnssLatitude", msg)
	}
	if lat.Degrees != 52.37 {
		t.Errorf("GnssLatitude = %v, want 52.37", lat.Degrees)
	}

	msg = Decode(frame(t, 0x204, 0xEA, 0x07, 8, 29, 13, 45, 30, 0))
	dt, ok := msg.(GnssDateTime)
	if !ok {
		t.Fatalf("Decode(0x204) = %T, want GnssDateTime", msg)
	}
	want := GnssDateTime{Year: 2026, Month: 8, Day: 29, Hours: 13, Minutes: 45, Seconds: 30}
	if dt != want {
		t.Errorf("GnssDateTime = %+v, want %+v", dt, want)
	}
}

func putLeF64(b []byte, v float64) {
	bits := math.Float64bits(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(bits >> (8 * i))
	}
}

func TestDecodeMpptChannelPower(t *testing.T) {
	// Device 2, info field 2 (channel 1). 18.25 V at 2.0 A.
	msg := Decode(frame(t, 0x722, 0x00, 0x00, 0x92, 0x41, 0x00, 0x00, 0x00, 0x40))
	got, ok := msg.(MpptChannelPower)
	if !ok {
		t.Fatalf("Decode = %T, want MpptChannelPower", msg)
	}
	if got.MpptID != 2 || got.Channel != 1 {
		t.Errorf("addressing = mppt %d channel %d, want 2/1", got.MpptID, got.Channel)
	}
	if got.VoltageIn != 18.25 || got.CurrentIn != 2.0 {
		t.Errorf("readings = %v V %v A, want 18.25/2.0", got.VoltageIn, got.CurrentIn)
	}
}

func TestDecodeMpptChannelState(t *testing.T) {
	msg := Decode(frame(t, 0x723, 0x10, 0x27, 2, 1, 1, 0, 0, 0))
	got, ok := msg.(MpptChannelState)
	if !ok {
		t.Fatalf("Decode = %T, want MpptChannelState", msg)
	}
	want := MpptChannelState{
		MpptID: 2, Channel: 1,
		DutyCycle: 10000, Algorithm: 2, AlgorithmState: 1, ChannelActive: true,
	}
	if got != want {
		t.Errorf("MpptChannelState = %+v, want %+v", got, want)
	}
}

func TestDecodeMpptOutputAndStatus(t *testing.T) {
	// Info field 8: output side, 56.0 V at 4.0 A.
	msg := Decode(frame(t, 0x758, 0x00, 0x00, 0x60, 0x42, 0x00, 0x00, 0x80, 0x40))
	out, ok := msg.(MpptOutputPower)
	if !ok {
		t.Fatalf("Decode(0x758) = %T, want MpptOutputPower", msg)
	}
	if out.MpptID != 5 || out.VoltageOut != 56.0 || out.CurrentOut != 4.0 {
		t.Errorf("MpptOutputPower = %+v, want mppt 5, 56.0 V, 4.0 A", out)
	}

	// Info field 9: status, 55.5 V switch side, 41 C, pwm on, switch on.
	msg = Decode(frame(t, 0x759, 0x00, 0x00, 0x5E, 0x42, 0x29, 0x00, 0x02, 0x03))
	st, ok := msg.(MpptStatus)
	if !ok {
		t.Fatalf("Decode(0x759) = %T, want MpptStatus", msg)
	}
	want := MpptStatus{
		MpptID: 5, VoltageOutSwitch: 55.5, Temperature: 41,
		State: 2, PwmEnabled: true, SwitchOn: true,
	}
	if st != want {
		t.Errorf("MpptStatus = %+v, want %+v", st, want)
	}
}

func TestDecodeMpptReservedInfoField(t *testing.T) {
	for _, info := range []uint32{0xA, 0xB, 0xC, 0xD, 0xE, 0xF} {
		if msg := Decode(frame(t, 0x720+info, 1, 2, 3, 4, 5, 6, 7, 8)); msg != nil {
			t.Errorf("Decode(info field %X) = %v, want nil", info, msg)
		}
	}
}

func TestDecodeMpptBandEdges(t *testing.T) {
	payload := []byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x80, 0x3F}

	if msg := Decode(frame(t, 0x700, payload...)); msg == nil {
		t.Error("Decode(0x700) = nil, want a decoded message")
	}
	// Device 7, info field 9: the last identifier in the band that carries a
	// defined report.
	if msg := Decode(frame(t, 0x779, 0x00, 0x00, 0x5E, 0x42, 0x29, 0x00, 0x02, 0x03)); msg == nil {
		t.Error("Decode(0x779) = nil, want a decoded message")
	}
	if msg := Decode(frame(t, 0x6FF, payload...)); msg != nil {
		t.Errorf("Decode(0x6FF) = %v, want nil", msg)
	}
	if msg := Decode(frame(t, 0x780, payload...)); msg != nil {
		t.Errorf("Decode(0x780) = %v, want nil", msg)
	}
}

func TestDecodeMotorStatus1(t *testing.T) {
	// rpm 3500, current 12.5 A, duty 45.0 %, big-endian fixed point.
	msg := Decode(frame(t, 0x0909, 0x00, 0x00, 0x0D, 0xAC, 0x00, 0x7D, 0x01, 0xC2))
	got, ok := msg.(MotorStatus1)
	if !ok {
		t.Fatalf("Decode = %T, want MotorStatus1", msg)
	}
	if got.RPM != 3500 {
		t.Errorf("RPM = %d, want 3500", got.RPM)
	}
	if got.Current != 12.5 {
		t.Errorf("Current = %v, want 12.5", got.Current)
	}
	if got.DutyCycle != 45.0 {
		t.Errorf("DutyCycle = %v, want 45.0", got.DutyCycle)
	}
}

func TestDecodeMotorStatus1Negative(t *testing.T) {
	// Regenerative braking: rpm -100, current -3.2 A.
	msg := Decode(frame(t, 0x0909, 0xFF, 0xFF, 0xFF, 0x9C, 0xFF, 0xE0, 0x00, 0x00))
	got, ok := msg.(MotorStatus1)
	if !ok {
		t.Fatalf("Decode = %T, want MotorStatus1", msg)
	}
	if got.RPM != -100 {
		t.Errorf("RPM = %d, want -100", got.RPM)
	}
	if got.Current != -3.2 {
		t.Errorf("Current = %v, want -3.2", got.Current)
	}
}

func TestDecodeMotorStatus4(t *testing.T) {
	// fet 31.5 C, motor 42.0 C, input 8.0 A, pid 2.0.
	msg := Decode(frame(t, 0x1009, 0x01, 0x3B, 0x01, 0xA4, 0x00, 0x50, 0x00, 0x64))
	got, ok := msg.(MotorStatus4)
	if !ok {
		t.Fatalf("Decode = %T, want MotorStatus4", msg)
	}
	if got.FetTemperature != 31.5 || got.MotorTemperature != 42.0 {
		t.Errorf("temps = %v/%v, want 31.5/42.0", got.FetTemperature, got.MotorTemperature)
	}
	if got.TotalInputCurrent != 8.0 {
		t.Errorf("TotalInputCurrent = %v, want 8.0", got.TotalInputCurrent)
	}
	if got.CurrentPIDPosition != 2.0 {
		t.Errorf("CurrentPIDPosition = %v, want 2.0", got.CurrentPIDPosition)
	}
}

func TestDecodeMotorStatus5(t *testing.T) {
	// tachometer 123456, input 52.9 V.
	msg := Decode(frame(t, 0x1B09, 0x00, 0x01, 0xE2, 0x40, 0x02, 0x11, 0x00, 0x00))
	got, ok := msg.(MotorStatus5)
	if !ok {
		t.Fatalf("Decode = %T, want MotorStatus5", msg)
	}
	if got.Tachometer != 123456 {
		t.Errorf("Tachometer = %d, want 123456", got.Tachometer)
	}
	if got.InputVoltage != 52.9 {
		t.Errorf("InputVoltage = %v, want 52.9", got.InputVoltage)
	}
}

func TestDecodeMotorEnergyCounters(t *testing.T) {
	// 1.2345 Ah used, 0.5 Ah generated.
	msg := Decode(frame(t, 0x0E09, 0x00, 0x00, 0x30, 0x39, 0x00, 0x00, 0x13, 0x88))
	ms2, ok := msg.(MotorStatus2)
	if !ok {
		t.Fatalf("Decode(0x0E09) = %T, want MotorStatus2", msg)
	}
	if ms2.AmpHoursUsed != 1.2345 || ms2.AmpHoursGenerated != 0.5 {
		t.Errorf("MotorStatus2 = %+v, want 1.2345/0.5", ms2)
	}

	msg = Decode(frame(t, 0x0F09, 0x00, 0x00, 0x30, 0x39, 0x00, 0x00, 0x13, 0x88))
	ms3, ok := msg.(MotorStatus3)
	if !ok {
		t.Fatalf("Decode(0x0F09) = %T, want MotorStatus3", msg)
	}
	if ms3.WattHoursUsed != 1.2345 || ms3.WattHoursGenerated != 0.5 {
		t.Errorf("MotorStatus3 = %+v, want 1.2345/0.5", ms3)
	}
}

func TestDecodeThrottleCommands(t *testing.T) {
	tests := []struct {
		id   uint32
		kind ThrottleCommandKind
	}{
		{0x0009, ThrottleCmdDutyCycle},
		{0x0109, ThrottleCmdCurrent},
		{0x0309, ThrottleCmdRPM},
	}
	for _, tt := range tests {
		// raw 50000 -> 50.0 after the fixed-point scale.
		msg := Decode(frame(t, tt.id, 0x00, 0x00, 0xC3, 0x50))
		got, ok := msg.(ThrottleCommand)
		if !ok {
			t.Fatalf("Decode(0x%04X) = %T, want ThrottleCommand", tt.id, msg)
		}
		if got.Kind != tt.kind {
			t.Errorf("Decode(0x%04X).Kind = %v, want %v", tt.id, got.Kind, tt.kind)
		}
		if got.Value != 50.0 {
			t.Errorf("Decode(0x%04X).Value = %v, want 50.0", tt.id, got.Value)
		}
	}
}

func TestDecodeThrottleStatus(t *testing.T) {
	// Full forward: raw 512 -> 100 %. Error byte sets deadman missing.
	msg := Decode(frame(t, 0x1337, 0x02, 0x00, 0x01, 0x22, 0x00, 0xC8, 0x07, 0x40))
	got, ok := msg.(ThrottleStatus)
	if !ok {
		t.Fatalf("Decode = %T, want ThrottleStatus", msg)
	}
	if got.Value != 100.0 {
		t.Errorf("Value = %v, want 100.0", got.Value)
	}
	if got.RawAngle != 0x0122 || got.RawDeadman != 0x00C8 || got.Gain != 7 {
		t.Errorf("raw fields = %+v", got)
	}
	if !got.Errors.Any || !got.Errors.DeadmanMissing {
		t.Errorf("Errors = %+v, want Any and DeadmanMissing set", got.Errors)
	}
	if got.Errors.NoEEPROM || got.Errors.ImpedanceHigh || got.Errors.TWI != 0 {
		t.Errorf("Errors = %+v, unexpected bits set", got.Errors)
	}
	if !got.Errors.HasError() {
		t.Error("HasError() = false, want true")
	}
}

func TestDecodeThrottleStatusReverse(t *testing.T) {
	// raw -256 -> -50 %.
	msg := Decode(frame(t, 0x0337, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00))
	got, ok := msg.(ThrottleStatus)
	if !ok {
		t.Fatalf("Decode = %T, want ThrottleStatus", msg)
	}
	if got.Value != -50.0 {
		t.Errorf("Value = %v, want -50.0", got.Value)
	}
	if got.Errors.Any {
		t.Errorf("Errors.Any = true, want false")
	}
}

func TestDecodeThrottleConfigByLength(t *testing.T) {
	// Same identifier as the status report; 6 bytes selects the config shape.
	msg := Decode(frame(t, 0x1337, 3, 0, 0x02, 0x00, 0xFE, 0x00))
	got, ok := msg.(ThrottleConfig)
	if !ok {
		t.Fatalf("Decode = %T, want ThrottleConfig", msg)
	}
	if got.ControlType != ThrottleControlRPM {
		t.Errorf("ControlType = %v, want ThrottleControlRPM", got.ControlType)
	}
	if got.LeverForward != 0x0200 || got.LeverBackward != -512 {
		t.Errorf("levers = %d/%d, want 512/-512", got.LeverForward, got.LeverBackward)
	}

	// Out-of-range control byte maps to the sentinel instead of failing.
	msg = Decode(frame(t, 0x1337, 9, 0, 0, 0, 0, 0))
	got, ok = msg.(ThrottleConfig)
	if !ok {
		t.Fatalf("Decode = %T, want ThrottleConfig", msg)
	}
	if got.ControlType != ThrottleControlUnknown {
		t.Errorf("ControlType = %v, want ThrottleControlUnknown", got.ControlType)
	}
}

func TestDecodeThrottleReportOddLength(t *testing.T) {
	// Neither report shape; must be dropped, not guessed.
	if msg := Decode(frame(t, 0x1337, 1, 2, 3, 4, 5)); msg != nil {
		t.Errorf("Decode(5-byte report) = %v, want nil", msg)
	}
}

func TestDecodeUnknownID(t *testing.T) {
	for _, id := range []uint32{0x000, 0x0FF, 0x10A, 0x205, 0x400, 0x7FF} {
		if msg := Decode(frame(t, id, 1, 2, 3, 4, 5, 6, 7, 8)); msg != nil {
			t.Errorf("Decode(0x%X) = %v, want nil", id, msg)
		}
	}
}

func TestDecodeTruncatedPayloads(t *testing.T) {
	// A short payload fails the whole frame; no partial messages.
	tests := []struct {
		id   uint32
		data []byte
	}{
		{0x100, []byte{0x58, 0x17, 0xDA, 0x41}},
		{0x101, []byte{}},
		{0x102, []byte{0x25, 0x26, 0, 0}},
		{0x103, []byte{0x36, 0x10, 0x2C}},
		{0x106, []byte{0x39, 0x10}},
		{0x107, []byte{0x24, 0x24, 0x26, 0x28, 0x36, 0x06, 0x03}},
		{0x108, []byte{0x6C, 0xB0}},
		{0x200, []byte{3, 12}},
		{0x202, []byte{1, 2, 3, 4}},
		{0x204, []byte{0xEA, 0x07, 8, 29}},
		{0x720, []byte{0x00, 0x00, 0x92, 0x41}},
		{0x721, []byte{0x10, 0x27, 2, 1}},
		{0x0909, []byte{0x00, 0x00, 0x0D, 0xAC, 0x00}},
		{0x1009, []byte{0x01, 0x3B}},
		{0x0009, []byte{0x00, 0x00, 0xC3}},
	}
	for _, tt := range tests {
		if msg := Decode(frame(t, tt.id, tt.data...)); msg != nil {
			t.Errorf("Decode(0x%X, %d bytes) = %v, want nil", tt.id, len(tt.data), msg)
		}
	}
}

// FuzzDecode checks totality: no identifier/payload combination may panic.
func FuzzDecode(f *testing.F) {
	f.Add(uint32(0x100), []byte{0x58, 0x17, 0xDA, 0x41, 0xEB, 0xF5, 0x77, 0xBE})
	f.Add(uint32(0x1337), []byte{3, 0, 0x02, 0x00, 0xFE, 0x00})
	f.Add(uint32(0x77F), []byte{})
	f.Fuzz(func(t *testing.T, id uint32, data []byte) {
		if len(data) > 8 {
			data = data[:8]
		}
		fr, err := can.NewFrame(id&0x1FFFFFFF, data)
		if err != nil {
			t.Skip()
		}
		Decode(fr)
	})
}
