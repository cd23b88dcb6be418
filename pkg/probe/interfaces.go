package probe

import (
	"context"
	"fmt"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/ch347"
	"github.com/OpenTraceLab/OpenTraceWT588/pkg/dap"
)

// InterfaceInfo describes a detected adapter.
type InterfaceInfo struct {
	Kind        Kind
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
	Path        string
}

// Label returns a user-friendly description for the interface.
func (i InterfaceInfo) Label() string {
	if i.Description != "" {
		return i.Description
	}
	if i.Kind != "" {
		return fmt.Sprintf("%s (%04X:%04X)", string(i.Kind), i.VendorID, i.ProductID)
	}
	return fmt.Sprintf("Interface %04X:%04X", i.VendorID, i.ProductID)
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownCMSISDAPVIDPIDs = []knownUSBDevice{
	{VendorID: dap.VendorIDRaspberryPi, ProductID: dap.ProductIDCMSISDAP, Description: "Raspberry Pi CMSIS-DAP"},
	{VendorID: 0x0d28, ProductID: 0x0204, Description: "DAPLink CMSIS-DAP"},
	{VendorID: 0x1366, ProductID: 0x0101, Description: "SEGGER J-Link CMSIS-DAP"},
}

// classifyUSBDevice matches a descriptor against the known CMSIS-DAP probes.
// CH347 bridges are found through HID instead, which also reports the path
// needed to open them.
func classifyUSBDevice(desc *gousb.DeviceDesc) (InterfaceInfo, bool) {
	for _, known := range knownCMSISDAPVIDPIDs {
		if uint16(desc.Vendor) == known.VendorID && uint16(desc.Product) == known.ProductID {
			return InterfaceInfo{
				Kind:        KindCMSISDAP,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
			}, true
		}
	}
	return InterfaceInfo{}, false
}

// DiscoverInterfaces enumerates connected adapters. It always returns at
// least the simulator entry so the tools can be exercised without hardware.
// Host GPIO is not listed; whether a header exists cannot be probed safely.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if info, ok := classifyUSBDevice(desc); ok {
			results = append(results, info)
		}
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return results, err
	}

	if bridges, err := ch347.Enumerate(); err == nil {
		for _, b := range bridges {
			results = append(results, InterfaceInfo{
				Kind:        KindCH347,
				Description: b.Description,
				VendorID:    ch347.VendorID,
				ProductID:   ch347.ProductID,
				Serial:      b.SerialNumber,
				Path:        b.Path,
			})
		}
	}

	results = append(results, InterfaceInfo{
		Kind:        KindSimulator,
		Description: "Simulator (no hardware)",
	})

	return results, nil
}
