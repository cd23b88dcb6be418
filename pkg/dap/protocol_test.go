package dap

import (
	"bytes"
	"testing"
	"time"
)

func TestProtocol_EncodeInfo(t *testing.T) {
	p := NewProtocol(64)

	tests := []struct {
		name   string
		infoID byte
		want   []byte
	}{
		{"Vendor ID", InfoVendorID, []byte{CmdInfo, InfoVendorID}},
		{"Product ID", InfoProductID, []byte{CmdInfo, InfoProductID}},
		{"Serial Number", InfoSerialNum, []byte{CmdInfo, InfoSerialNum}},
		{"Packet Size", InfoPacketSize, []byte{CmdInfo, InfoPacketSize}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.EncodeInfo(tt.infoID); !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeInfo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProtocol_DecodeInfo(t *testing.T) {
	p := NewProtocol(64)

	tests := []struct {
		name    string
		resp    []byte
		want    string
		wantErr bool
	}{
		{"valid", []byte{CmdInfo, 5, 'A', 'R', 'M', '0', '1'}, "ARM01", false},
		{"nul terminated", []byte{CmdInfo, 4, 'R', 'P', 'i', 0}, "RPi", false},
		{"empty", []byte{CmdInfo, 0}, "", false},
		{"too short", []byte{CmdInfo}, "", true},
		{"wrong command", []byte{CmdConnect, 2, 'A', 'B'}, "", true},
		{"truncated", []byte{CmdInfo, 10, 'A', 'B'}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.DecodeInfo(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeInfo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProtocol_Connect(t *testing.T) {
	p := NewProtocol(64)

	if got := p.EncodeConnect(PortJTAG); !bytes.Equal(got, []byte{CmdConnect, PortJTAG}) {
		t.Errorf("EncodeConnect() = %v", got)
	}

	tests := []struct {
		name    string
		resp    []byte
		want    byte
		wantErr bool
	}{
		{"jtag", []byte{CmdConnect, PortJTAG}, PortJTAG, false},
		{"swd", []byte{CmdConnect, PortSWD}, PortSWD, false},
		{"failed", []byte{CmdConnect, 0}, 0, true},
		{"wrong command", []byte{CmdInfo, PortJTAG}, 0, true},
		{"too short", []byte{CmdConnect}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.DecodeConnect(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeConnect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeConnect() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProtocol_SWJPins(t *testing.T) {
	p := NewProtocol(64)

	tests := []struct {
		name string
		out  byte
		sel  byte
		wait time.Duration
		want []byte
	}{
		{"tck high", PinTCK, PinTCK, 0, []byte{CmdSWJPins, 0x01, 0x01, 0, 0, 0, 0}},
		{"tms low", 0, PinTMS, 0, []byte{CmdSWJPins, 0x00, 0x02, 0, 0, 0, 0}},
		{"read only", 0, 0, 0, []byte{CmdSWJPins, 0x00, 0x00, 0, 0, 0, 0}},
		{"wait 1ms", PinTDI, PinTDI, time.Millisecond, []byte{CmdSWJPins, 0x04, 0x04, 0xE8, 0x03, 0, 0}},
		{"wait clamped", 0, 0, time.Minute, []byte{CmdSWJPins, 0, 0, 0xC0, 0xC6, 0x2D, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.EncodeSWJPins(tt.out, tt.sel, tt.wait); !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeSWJPins() = % X, want % X", got, tt.want)
			}
		})
	}

	in, err := p.DecodeSWJPins([]byte{CmdSWJPins, PinTDO | PinNRESET})
	if err != nil {
		t.Fatalf("DecodeSWJPins() error = %v", err)
	}
	if in != PinTDO|PinNRESET {
		t.Errorf("DecodeSWJPins() = 0x%02X", in)
	}
	if _, err := p.DecodeSWJPins([]byte{CmdDelay, 0}); err == nil {
		t.Error("DecodeSWJPins() accepted wrong command")
	}
	if _, err := p.DecodeSWJPins([]byte{CmdSWJPins}); err == nil {
		t.Error("DecodeSWJPins() accepted short response")
	}
}

func TestProtocol_Delay(t *testing.T) {
	p := NewProtocol(64)

	tests := []struct {
		d    time.Duration
		want []byte
	}{
		{20 * time.Microsecond, []byte{CmdDelay, 20, 0}},
		{500 * time.Nanosecond, []byte{CmdDelay, 1, 0}},
		{20*time.Microsecond + time.Nanosecond, []byte{CmdDelay, 21, 0}},
		{5 * time.Millisecond, []byte{CmdDelay, 0x88, 0x13}},
		{time.Second, []byte{CmdDelay, 0xFF, 0xFF}},
	}
	for _, tt := range tests {
		if got := p.EncodeDelay(tt.d); !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeDelay(%v) = % X, want % X", tt.d, got, tt.want)
		}
	}

	if err := p.DecodeDelay([]byte{CmdDelay, StatusOK}); err != nil {
		t.Errorf("DecodeDelay() error = %v", err)
	}
	if err := p.DecodeDelay([]byte{CmdDelay, StatusError}); err == nil {
		t.Error("DecodeDelay() accepted error status")
	}
}

func TestProtocol_DisconnectStatus(t *testing.T) {
	p := NewProtocol(64)
	if err := p.DecodeDisconnect([]byte{CmdDisconnect, StatusOK}); err != nil {
		t.Errorf("DecodeDisconnect() error = %v", err)
	}
	if err := p.DecodeDisconnect([]byte{CmdDisconnect, StatusError}); err == nil {
		t.Error("DecodeDisconnect() accepted error status")
	}
}
