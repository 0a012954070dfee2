//go:build linux

package tunif

import (
	"fmt"
	"os"
	"os/exec"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	ifNameSize = 16
	tunSetIff  = 0x400454ca // TUNSETIFF, per <linux/if_tun.h>
)

type ifreq struct {
	Name  [ifNameSize]byte
	Flags uint16
	_     [24]byte
}

type linuxDevice struct {
	file *os.File
	name string
}

// Open creates (or re-creates) a TUN device named p.Name, brings it up, and
// assigns it p.Address/p.Netmask, the way the host environment is expected
// to arrange per spec.md §6 (the core itself does not configure routing/NAT
// beyond this).
func Open(p Params) (Device, error) {
	if p.MTU == 0 {
		p.MTU = DefaultMTU
	}

	// Drop a stale device from a previous run before recreating it.
	_ = exec.Command("ip", "link", "delete", p.Name).Run()

	tunPath := "/dev/net/tun"
	f, err := os.OpenFile(tunPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("tunif: failed to open %s: %w", tunPath, err)
	}

	var req ifreq
	copy(req.Name[:], p.Name)
	req.Flags = unix.IFF_TUN | unix.IFF_NO_PI

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(tunSetIff), uintptr(unsafe.Pointer(&req))); errno != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("tunif: ioctl TUNSETIFF failed for %s: %w", p.Name, errno)
	}

	if err := configure(p); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &linuxDevice{file: f, name: p.Name}, nil
}

func configure(p Params) error {
	if out, err := exec.Command("ip", "addr", "add",
		fmt.Sprintf("%s/%s", p.Address, netmaskToPrefixLen(p.Netmask)), "dev", p.Name).CombinedOutput(); err != nil {
		return fmt.Errorf("tunif: failed to assign address to %s: %w, output: %s", p.Name, err, out)
	}
	if out, err := exec.Command("ip", "link", "set", "dev", p.Name, "up", "mtu", fmt.Sprint(p.MTU)).CombinedOutput(); err != nil {
		return fmt.Errorf("tunif: failed to bring up %s: %w, output: %s", p.Name, err, out)
	}
	return nil
}

func (d *linuxDevice) Read(b []byte) (int, error)  { return d.file.Read(b) }
func (d *linuxDevice) Write(b []byte) (int, error) { return d.file.Write(b) }
func (d *linuxDevice) Close() error                { return d.file.Close() }
func (d *linuxDevice) Name() string                { return d.name }
