package dap

import (
	"encoding/binary"
	"fmt"
	"time"
)

// CMSIS-DAP Command IDs
const (
	CmdInfo       = 0x00
	CmdConnect    = 0x02
	CmdDisconnect = 0x03
	CmdDelay      = 0x09
	CmdSWJPins    = 0x10
)

// DAP_Info Info IDs
const (
	InfoVendorID     = 0x01
	InfoProductID    = 0x02
	InfoSerialNum    = 0x03
	InfoFirmwareVer  = 0x04
	InfoCapabilities = 0xF0
	InfoPacketCount  = 0xFE
	InfoPacketSize   = 0xFF
)

// Connection ports
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

// Status codes
const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// DAP_SWJ_Pins bit positions. The same layout is used for the output value,
// the select mask and the returned input state.
const (
	PinSWCLK  = 1 << 0 // SWCLK/TCK
	PinSWDIO  = 1 << 1 // SWDIO/TMS
	PinTDI    = 1 << 2
	PinTDO    = 1 << 3
	PinNTRST  = 1 << 5
	PinNRESET = 1 << 7
)

// Aliases for the JTAG names of the shared pins.
const (
	PinTCK = PinSWCLK
	PinTMS = PinSWDIO
)

// MaxPinWait is the longest settle time DAP_SWJ_Pins accepts.
const MaxPinWait = 3 * time.Second

// Protocol handles encoding/decoding of CMSIS-DAP commands
type Protocol struct {
	PacketSize int
}

// NewProtocol creates a new protocol handler
func NewProtocol(packetSize int) *Protocol {
	return &Protocol{
		PacketSize: packetSize,
	}
}

// EncodeInfo builds a DAP_Info command
func (p *Protocol) EncodeInfo(infoID byte) []byte {
	return []byte{CmdInfo, infoID}
}

// DecodeInfo parses a DAP_Info response
func (p *Protocol) DecodeInfo(resp []byte) (string, error) {
	if len(resp) < 2 {
		return "", fmt.Errorf("response too short")
	}
	if resp[0] != CmdInfo {
		return "", fmt.Errorf("invalid command ID: 0x%02X", resp[0])
	}

	length := int(resp[1])
	if len(resp) < 2+length {
		return "", fmt.Errorf("incomplete info string")
	}

	// Strings are NUL terminated on most probes.
	s := resp[2 : 2+length]
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s), nil
}

// EncodeConnect builds a DAP_Connect command
func (p *Protocol) EncodeConnect(port byte) []byte {
	return []byte{CmdConnect, port}
}

// DecodeConnect parses a DAP_Connect response
func (p *Protocol) DecodeConnect(resp []byte) (byte, error) {
	if len(resp) < 2 {
		return 0, fmt.Errorf("response too short")
	}
	if resp[0] != CmdConnect {
		return 0, fmt.Errorf("invalid command ID")
	}
	if resp[1] == 0 {
		return 0, fmt.Errorf("connection failed")
	}
	return resp[1], nil
}

// EncodeDisconnect builds a DAP_Disconnect command
func (p *Protocol) EncodeDisconnect() []byte {
	return []byte{CmdDisconnect}
}

// DecodeDisconnect parses a DAP_Disconnect response
func (p *Protocol) DecodeDisconnect(resp []byte) error {
	return decodeStatus(resp, CmdDisconnect, "disconnect")
}

// EncodeSWJPins builds a DAP_SWJ_Pins command. Only pins set in sel are
// driven; wait is how long the probe waits for the selected inputs to settle.
func (p *Protocol) EncodeSWJPins(out, sel byte, wait time.Duration) []byte {
	if wait > MaxPinWait {
		wait = MaxPinWait
	}
	cmd := make([]byte, 7)
	cmd[0] = CmdSWJPins
	cmd[1] = out
	cmd[2] = sel
	binary.LittleEndian.PutUint32(cmd[3:], uint32(wait/time.Microsecond))
	return cmd
}

// DecodeSWJPins parses a DAP_SWJ_Pins response and returns the pin input
// state.
func (p *Protocol) DecodeSWJPins(resp []byte) (byte, error) {
	if len(resp) < 2 {
		return 0, fmt.Errorf("response too short")
	}
	if resp[0] != CmdSWJPins {
		return 0, fmt.Errorf("invalid command ID: 0x%02X", resp[0])
	}
	return resp[1], nil
}

// EncodeDelay builds a DAP_Delay command. The probe waits d (at most 65535us,
// rounded up to whole microseconds) before answering.
func (p *Protocol) EncodeDelay(d time.Duration) []byte {
	us := (d + time.Microsecond - 1) / time.Microsecond
	if us > 0xFFFF {
		us = 0xFFFF
	}
	cmd := make([]byte, 3)
	cmd[0] = CmdDelay
	binary.LittleEndian.PutUint16(cmd[1:], uint16(us))
	return cmd
}

// DecodeDelay parses a DAP_Delay response
func (p *Protocol) DecodeDelay(resp []byte) error {
	return decodeStatus(resp, CmdDelay, "delay")
}

func decodeStatus(resp []byte, cmd byte, what string) error {
	if len(resp) < 2 {
		return fmt.Errorf("response too short")
	}
	if resp[0] != cmd {
		return fmt.Errorf("invalid command ID: 0x%02X", resp[0])
	}
	if resp[1] != StatusOK {
		return fmt.Errorf("%s failed", what)
	}
	return nil
}
