package headset

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The kernel does not expose a negotiated SCO MTU; 48 bytes is the usable
// packet size in both directions.
const scoMTU = 48

// sockaddrSCO mirrors struct sockaddr_sco from <bluetooth/sco.h>.
type sockaddrSCO struct {
	family uint16
	bdaddr [6]byte
}

// parseBDAddr decomposes a canonical XX:XX:XX:XX:XX:XX address into the
// kernel's reversed byte order by hex-octet decomposition. No libbluetooth
// style helper is involved.
func parseBDAddr(addr string) ([6]byte, error) {
	var out [6]byte

	octets := strings.Split(addr, ":")
	if len(octets) != 6 {
		return out, fmt.Errorf("malformed bluetooth address %q", addr)
	}
	for i, o := range octets {
		v, err := strconv.ParseUint(o, 16, 8)
		if err != nil {
			return out, fmt.Errorf("malformed bluetooth address %q: %w", addr, err)
		}
		out[5-i] = byte(v)
	}
	return out, nil
}

// scoConnect opens the audio socket: a sequential-packet socket in the
// Bluetooth family, bound to the adapter address and connected to the
// headset. EINPROGRESS and EAGAIN count as success, the link completes at a
// lower layer. On failure the partially-created socket is closed and the
// error returned.
func scoConnect(adapterAddr, deviceAddr string) (int, error) {
	src, err := parseBDAddr(adapterAddr)
	if err != nil {
		return -1, err
	}
	dst, err := parseBDAddr(deviceAddr)
	if err != nil {
		return -1, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET, unix.BTPROTO_SCO)
	if err != nil {
		return -1, fmt.Errorf("socket(SEQPACKET, SCO): %w", err)
	}

	local := sockaddrSCO{family: unix.AF_BLUETOOTH, bdaddr: src}
	if err := scoSockaddrCall(unix.SYS_BIND, fd, &local); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind: %w", err)
	}

	remote := sockaddrSCO{family: unix.AF_BLUETOOTH, bdaddr: dst}
	if err := scoSockaddrCall(unix.SYS_CONNECT, fd, &remote); err != nil &&
		err != unix.EINPROGRESS && err != unix.EAGAIN {
		unix.Close(fd)
		return -1, fmt.Errorf("connect: %w", err)
	}

	return fd, nil
}

// scoSockaddrCall passes a raw sockaddr_sco to bind or connect. x/sys/unix
// has no Sockaddr implementation for the SCO family, so the struct goes in
// by pointer.
func scoSockaddrCall(trap uintptr, fd int, sa *sockaddrSCO) error {
	_, _, errno := unix.Syscall(trap, uintptr(fd), uintptr(unsafe.Pointer(sa)), unsafe.Sizeof(*sa))
	if errno != 0 {
		return errno
	}
	return nil
}
