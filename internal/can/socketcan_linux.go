//go:build linux

package can

import (
	"errors"
	"net"
	"os"
	"syscall"
	"unsafe"
)

// socketCAN implements Bus over Linux SocketCAN using raw syscalls.
type socketCAN struct {
	fd     int
	file   *os.File
	closed chan struct{}
}

// DialSocketCAN opens a raw CAN socket bound to the given interface name
// (e.g. "can0", "vcan0").
func DialSocketCAN(iface string) (Bus, error) {
	const (
		afCAN  = 29
		canRaw = 1
	)
	fd, err := syscall.Socket(afCAN, syscall.SOCK_RAW, canRaw)
	if err != nil {
		return nil, err
	}

	netIf, err := net.InterfaceByName(iface)
	if err != nil {
		syscall.Close(fd)
		return nil, err
	}

	// struct sockaddr_can { sa_family_t can_family; int can_ifindex; ... }
	type sockaddrCAN struct {
		Family  uint16
		_       uint16
		Ifindex int32
		Addr    [8]byte
	}
	sa := sockaddrCAN{Family: afCAN, Ifindex: int32(netIf.Index)}
	if _, _, e := syscall.Syscall(syscall.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa)); e != 0 {
		syscall.Close(fd)
		return nil, e
	}

	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		return nil, err
	}

	f := os.NewFile(uintptr(fd), "socketcan:"+iface)
	return &socketCAN{fd: fd, file: f, closed: make(chan struct{})}, nil
}

func (s *socketCAN) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	close(s.closed)
	return s.file.Close()
}

// Send writes one frame in the kernel can_frame layout.
func (s *socketCAN) Send(frame Frame) error {
	buf, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	for {
		select {
		case <-s.closed:
			return ErrClosed
		default:
		}
		n, werr := syscall.Write(s.fd, buf)
		if werr == nil {
			if n != len(buf) {
				return errors.New("can: short write")
			}
			return nil
		}
		if werr == syscall.EAGAIN || werr == syscall.EWOULDBLOCK {
			yield()
			continue
		}
		return werr
	}
}

// Receive blocks until one data frame is read. Non-data frames are skipped.
func (s *socketCAN) Receive() (Frame, error) {
	buf := make([]byte, 16)
	for {
		select {
		case <-s.closed:
			return Frame{}, ErrClosed
		default:
		}
		n, rerr := syscall.Read(s.fd, buf)
		if rerr == nil {
			if n != len(buf) {
				return Frame{}, errors.New("can: short read")
			}
			var f Frame
			if err := f.UnmarshalBinary(buf); err != nil {
				// RTR/error frame on a shared bus, not ours to handle.
				continue
			}
			return f, nil
		}
		if rerr == syscall.EAGAIN || rerr == syscall.EWOULDBLOCK {
			yield()
			continue
		}
		return Frame{}, rerr
	}
}

// yield parks the caller for ~1ms between polls of the non-blocking socket.
func yield() {
	syscall.Select(0, nil, nil, nil, &syscall.Timeval{Usec: 1000})
}
