// Package can provides the CAN 2.0 frame type and bus transport used by the
// telemetry pipeline: a Linux SocketCAN driver and an in-memory loopback bus
// for tests and simulations. CAN FD is not supported.
package can

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Frame is a classical CAN 2.0 data frame: an 11-bit (standard) or 29-bit
// (extended) identifier and up to 8 payload bytes. Frames are plain values;
// once constructed they are never mutated.
type Frame struct {
	ID       uint32 // 11-bit (standard) or 29-bit (extended)
	Extended bool   // true for a 29-bit identifier
	Len      uint8  // 0..8
	Data     [8]byte
}

const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF

	// effFlag marks an extended identifier in the SocketCAN can_id word and
	// in Frame.Key.
	effFlag = 0x80000000
)

var (
	ErrInvalidID  = errors.New("can: invalid identifier")
	ErrInvalidLen = errors.New("can: invalid data length")
)

// NewFrame builds a frame from an identifier and payload. Identifiers above
// the 11-bit range are tagged extended.
func NewFrame(id uint32, data []byte) (Frame, error) {
	f := Frame{ID: id, Extended: id > maxStdID}
	if len(data) > len(f.Data) {
		return Frame{}, ErrInvalidLen
	}
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// NewExtendedFrame builds a frame tagged extended even when the identifier
// fits in 11 bits. The bus treats standard and extended identifiers with the
// same numeric value as distinct.
func NewExtendedFrame(id uint32, data []byte) (Frame, error) {
	f, err := NewFrame(id, data)
	if err != nil {
		return Frame{}, err
	}
	f.Extended = true
	return f, nil
}

// MustFrame is NewFrame but panics on invalid input. A payload longer than
// 8 bytes is a programming error, not a runtime condition, so it fails fast.
func MustFrame(id uint32, data []byte) Frame {
	f, err := NewFrame(id, data)
	if err != nil {
		panic(err)
	}
	return f
}

// Validate returns an error if the frame violates the CAN 2.0 contract.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	max := uint32(maxStdID)
	if f.Extended {
		max = maxExtID
	}
	if f.ID > max {
		return ErrInvalidID
	}
	return nil
}

// Key folds the identifier and its standard/extended tag into a single
// uint32 (extended flag in bit 31, the SocketCAN EFF convention). Standard
// ID 0x123 and extended ID 0x123 are distinct keys.
func (f Frame) Key() uint32 {
	if f.Extended {
		return f.ID | effFlag
	}
	return f.ID
}

// Payload returns the valid portion of the data array.
func (f Frame) Payload() []byte {
	return f.Data[:f.Len]
}

func (f Frame) String() string {
	if f.Extended {
		return fmt.Sprintf("%08X#%X", f.ID, f.Payload())
	}
	return fmt.Sprintf("%03X#%X", f.ID, f.Payload())
}

// MarshalBinary encodes the frame to the Linux SocketCAN struct can_frame
// layout (16 bytes, little-endian can_id with EFF flag).
func (f Frame) MarshalBinary() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	id := f.ID
	if f.Extended {
		id |= effFlag
	}
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:16], f.Data[:])
	return buf, nil
}

// UnmarshalBinary decodes the 16-byte SocketCAN layout. RTR and error frames
// are rejected; the telemetry bus carries data frames only.
func (f *Frame) UnmarshalBinary(buf []byte) error {
	if len(buf) < 16 {
		return errors.New("can: short frame buffer")
	}
	const (
		rtrFlag = 0x40000000
		errFlag = 0x20000000
	)
	id := binary.LittleEndian.Uint32(buf[0:4])
	if id&(rtrFlag|errFlag) != 0 {
		return errors.New("can: not a data frame")
	}
	f.Extended = id&effFlag != 0
	f.ID = id &^ effFlag
	f.Len = buf[4]
	copy(f.Data[:], buf[8:16])
	return f.Validate()
}
