// Package render contains snapshot renderers. The text renderer writes a
// compact terminal view; absent fields print as NaN so a stalled subsystem is
// visible instead of showing its last frozen number.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/Engineers-of-Innovation/eoi-can/internal/ports"
	"github.com/Engineers-of-Innovation/eoi-can/internal/snapshot"
)

type TextRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTextRenderer(out io.Writer) *TextRenderer {
	return &TextRenderer{out: out}
}

func (r *TextRenderer) Name() string { return "text" }

func (r *TextRenderer) Render(s *snapshot.Snapshot) error {
	var b strings.Builder

	fmt.Fprintf(&b, "speed %5.1f km/h  fix %-5s  soc %6.2f %%  tte %3s min\n",
		orNaN32(s.SpeedKmh.Get()),
		boolStr(s.GnssFix.Get()),
		orNaN32(s.StateOfCharge.Get()),
		u16Str(s.TimeToEmptyMin.Get()))

	fmt.Fprintf(&b, "pack %6.2f V  net %7.1f W  in %7.1f W  motor %7.1f W  aux %6.1f W\n",
		orNaN32(s.BatteryVoltage.Get()),
		s.NetPower(), s.InputPower(), s.MotorOutputPower(), s.AuxOutputPower())

	cellMin, cellMax, cellAvg := s.CellVoltageStats()
	fmt.Fprintf(&b, "cells min %5.3f V  max %5.3f V  avg %5.3f V\n", cellMin, cellMax, cellAvg)

	tMin, tMax, _ := s.TemperatureStats()
	fmt.Fprintf(&b, "temp %4.0f..%-4.0f C  fet %5.1f C  motor %5.1f C\n",
		tMin, tMax,
		orNaN32(s.MotorFetTemp.Get()),
		orNaN32(s.MotorTemp.Get()))

	fmt.Fprintf(&b, "rpm %6s  duty %6.1f %%  throttle %6.1f %%\n",
		i32Str(s.MotorRPM.Get()),
		orNaN32(s.MotorDutyCycle.Get()),
		orNaN32(s.ThrottleValue.Get()))

	var solar float32
	for i := range s.Panels {
		if p, ok := s.Panels[i].Get(); ok {
			solar += p.Power
		}
	}
	fmt.Fprintf(&b, "solar %6.1f W over %d panels\n", solar, snapshot.NumPanels)

	if errs, ok := s.ThrottleErrors.Get(); ok && errs.HasError() {
		fmt.Fprintf(&b, "THROTTLE ERROR: %+v\n", errs)
	}
	if addr, ok := s.IPAddress.Get(); ok {
		fmt.Fprintf(&b, "host %s\n", addr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.out, b.String())
	return err
}

func orNaN32(v float32, ok bool) float32 {
	if !ok {
		return float32(math.NaN())
	}
	return v
}

func boolStr(v, ok bool) string {
	if !ok {
		return "n/a"
	}
	if v {
		return "yes"
	}
	return "no"
}

func u16Str(v uint16, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%d", v)
}

func i32Str(v int32, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%d", v)
}

var _ ports.Renderer = (*TextRenderer)(nil)
