package ch347

import (
	"errors"
	"fmt"
	"time"

	"github.com/sstallion/go-hid"
)

// USB identifiers of the CH347 in HID mode.
const (
	VendorID  = 0x1a86
	ProductID = 0x55dc

	productString = "HID To UART+SPI+I2C"
	gpioInterface = 1
)

// ReadTimeout bounds every GPIO response read.
var ReadTimeout = time.Second

// DeviceInfo describes one CH347 GPIO interface found on the bus.
type DeviceInfo struct {
	Path         string
	SerialNumber string
	Description  string
}

// Enumerate lists the GPIO interfaces of every attached bridge.
func Enumerate() ([]DeviceInfo, error) {
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("ch347: hid init: %w", err)
	}
	var out []DeviceInfo
	err := hid.Enumerate(VendorID, ProductID, func(info *hid.DeviceInfo) error {
		if info.ProductStr == productString && info.InterfaceNbr == gpioInterface {
			out = append(out, DeviceInfo{
				Path:         info.Path,
				SerialNumber: info.SerialNbr,
				Description:  info.MfrStr + " " + info.ProductStr,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ch347: enumerate: %w", err)
	}
	return out, nil
}

// Device is an open bridge.
type Device struct {
	GPIO
	dev *hid.Device
}

// Open opens the bridge at path, or the first bridge found when path is
// empty.
func Open(path string) (*Device, error) {
	if path == "" {
		infos, err := Enumerate()
		if err != nil {
			return nil, err
		}
		if len(infos) == 0 {
			return nil, errors.New("ch347: no CH347 found")
		}
		path = infos[0].Path
	}
	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("ch347: hid init: %w", err)
	}
	dev, err := hid.OpenPath(path)
	if err != nil {
		return nil, fmt.Errorf("ch347: open %s: %w", path, err)
	}
	d := &Device{dev: dev}
	d.GPIO.Dev = &timeoutDev{dev}
	return d, nil
}

// Close releases the HID handle.
func (d *Device) Close() error {
	if d.dev == nil {
		return nil
	}
	err := d.dev.Close()
	d.dev = nil
	return err
}

// timeoutDev bounds reads and retries reads interrupted by a signal, which
// would otherwise leave a response in the pipe and desynchronize the next
// request.
type timeoutDev struct {
	*hid.Device
}

func (d *timeoutDev) Read(p []byte) (int, error) {
	for {
		n, err := d.Device.ReadWithTimeout(p, ReadTimeout)
		if err == nil || err.Error() != "Interrupted system call" {
			return n, err
		}
	}
}
