//go:build linux

// Package ipv4 implements the minimal IPv4 input path: header validation,
// checksum verification, fragmentation rejection, and interface selection.
// It is the first consumer of the protocol table, registering itself under
// ProtocolType.
package ipv4

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/lattice-net/uconet/internal/checksum"
	"github.com/lattice-net/uconet/internal/netcore"
)

// ProtocolType is the EtherType-style identifier IPv4 frames are registered
// under in the protocol table.
const ProtocolType uint16 = 0x0800

// HeaderLen is the fixed IPv4 header size this path understands; options are
// not interpreted.
const HeaderLen = 20

// Header is the parsed form of an IPv4 header's fixed fields.
type Header struct {
	Version        uint8
	IHL            uint8
	TOS            uint8
	TotalLength    uint16
	Identification uint16
	DontFragment   bool
	MoreFragments  bool
	FragmentOffset uint16
	TTL            uint8
	Protocol       uint8
	Checksum       uint16
	Src            uint32
	Dst            uint32
}

// ParseHeader decodes the first HeaderLen bytes of data. Callers must check
// len(data) >= HeaderLen first; ParseHeader does not re-check it.
func ParseHeader(data []byte) Header {
	flagsFrag := binary.BigEndian.Uint16(data[6:8])
	return Header{
		Version:        data[0] >> 4,
		IHL:            data[0] & 0x0f,
		TOS:            data[1],
		TotalLength:    binary.BigEndian.Uint16(data[2:4]),
		Identification: binary.BigEndian.Uint16(data[4:6]),
		DontFragment:   (flagsFrag>>14)&0x1 != 0,
		MoreFragments:  (flagsFrag>>13)&0x1 != 0,
		FragmentOffset: flagsFrag & 0x1fff,
		TTL:            data[8],
		Protocol:       data[9],
		Checksum:       binary.BigEndian.Uint16(data[10:12]),
		Src:            binary.BigEndian.Uint32(data[12:16]),
		Dst:            binary.BigEndian.Uint32(data[16:20]),
	}
}

// Register installs the IPv4 input handler on engine's protocol table under
// ProtocolType.
func Register(engine *netcore.Engine) {
	engine.RegisterProtocol(ProtocolType, func(data []byte, dev netcore.DeviceHandle) {
		input(engine, dev, data)
	})
	slog.Info("ipv4: registered", "type", ProtocolType)
}

// validate parses and checks data against the IPv4 input path's rules,
// without logging or touching metrics, so it can be exercised directly by
// tests. ok is true iff the frame should be accepted, in which case ref is
// the interface its destination resolved against; otherwise reason is one of
// "short_header" (too short for the fixed header, the declared total length
// or the declared header length, or a version other than 4), "checksum",
// "fragment", or "no_interface".
func validate(engine *netcore.Engine, data []byte) (hdr Header, ref netcore.IPInterfaceRef, ok bool, reason string) {
	if len(data) < HeaderLen {
		return Header{}, netcore.IPInterfaceRef{}, false, "short_header"
	}

	hdr = ParseHeader(data)

	if hdr.Version != 4 {
		return hdr, netcore.IPInterfaceRef{}, false, "short_header"
	}
	if len(data) < int(hdr.TotalLength) {
		return hdr, netcore.IPInterfaceRef{}, false, "short_header"
	}
	headerEnd := int(hdr.IHL) * 4
	if len(data) < headerEnd {
		return hdr, netcore.IPInterfaceRef{}, false, "short_header"
	}
	if checksum.Checksum16(data[:headerEnd], 0) != 0 {
		return hdr, netcore.IPInterfaceRef{}, false, "checksum"
	}
	if hdr.MoreFragments || hdr.FragmentOffset != 0 {
		return hdr, netcore.IPInterfaceRef{}, false, "fragment"
	}

	ref, matched := SelectInterface(engine, hdr.Dst)
	if !matched {
		return hdr, netcore.IPInterfaceRef{}, false, "no_interface"
	}

	return hdr, ref, true, ""
}

// input validates one received frame and, if it passes, selects the
// destination interface. Every rejection is logged and counted; none
// returns an error, since the caller (the protocol table's soft-IRQ drain)
// has nothing to do with one.
func input(engine *netcore.Engine, dev netcore.DeviceHandle, data []byte) {
	hdr, ref, ok, reason := validate(engine, data)
	if !ok {
		netcore.RecordProtocolDropped(reason)
		slog.Debug("ipv4: dropped", "reason", reason, "len", len(data))
		return
	}

	slog.Debug("ipv4: accepted", "src", FormatAddr(hdr.Src), "dst", FormatAddr(hdr.Dst), "iface_dev", ref.Device)
}

// SelectInterface scans every registered IPv4 interface on any device and
// accepts dst against the standard unicast/broadcast/limited-broadcast
// rules.
func SelectInterface(engine *netcore.Engine, dst uint32) (netcore.IPInterfaceRef, bool) {
	for _, ref := range engine.Interfaces.AllIP() {
		if dst == ref.Iface.Unicast || dst == ref.Iface.Broadcast || dst == 0xFFFFFFFF {
			return ref, true
		}
	}
	return netcore.IPInterfaceRef{}, false
}

// ParseAddr parses a dotted-quad IPv4 address into its big-endian uint32
// form. It returns an error on malformed input: callers include CLI flags
// and config files, which are runtime input, not authoring-time constants.
func ParseAddr(s string) (uint32, error) {
	var a, b, c, d uint8
	n, err := fmt.Sscanf(s, "%d.%d.%d.%d", &a, &b, &c, &d)
	if err != nil || n != 4 {
		return 0, fmt.Errorf("ipv4: malformed address %q", s)
	}
	return uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d), nil
}

// FormatAddr renders a big-endian uint32 IPv4 address as a dotted quad.
func FormatAddr(addr uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", addr>>24, (addr>>16)&0xff, (addr>>8)&0xff, addr&0xff)
}
