// Package capture decodes logic analyzer recordings of a WT588E02B bus and
// checks update transfers offline.
package capture

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
)

// Frame is everything clocked out on MOSI during one chip-select period.
type Frame struct {
	Start time.Duration // from the beginning of the recording
	Bytes []byte
}

// ReadDigital decodes the three Saleae binary digital exports of a recording.
// The bus is SPI mode 0, MSB first, with an active low chip-select.
func ReadDigital(cs, sclk, mosi io.Reader) ([]Frame, error) {
	enable, err := saleae.ReadDigitalFile(cs)
	if err != nil {
		return nil, fmt.Errorf("capture: cs channel: %w", err)
	}
	clk, err := saleae.ReadDigitalFile(sclk)
	if err != nil {
		return nil, fmt.Errorf("capture: sclk channel: %w", err)
	}
	sdo, err := saleae.ReadDigitalFile(mosi)
	if err != nil {
		return nil, fmt.Errorf("capture: mosi channel: %w", err)
	}

	spi := analyzers.SPI{}
	txs, err := spi.Scan(clk, enable, sdo, sdo)
	if err != nil {
		return nil, fmt.Errorf("capture: spi scan: %w", err)
	}
	frames := make([]Frame, 0, len(txs))
	for _, tx := range txs {
		frames = append(frames, Frame{
			Start: time.Duration(tx.StartTime() * float64(time.Second)),
			Bytes: append([]byte(nil), tx.SDO...),
		})
	}
	return frames, nil
}

// Channels names the export files of each bus line.
type Channels struct {
	CS, SCLK, MOSI string
}

// DefaultChannels matches a Logic 2 export with CS on channel 0, SCLK on 1
// and MOSI on 2.
var DefaultChannels = Channels{CS: "digital_0.bin", SCLK: "digital_1.bin", MOSI: "digital_2.bin"}

// ReadDir decodes the exports named by ch inside dir.
func ReadDir(dir string, ch Channels) ([]Frame, error) {
	var files [3]*os.File
	for i, name := range []string{ch.CS, ch.SCLK, ch.MOSI} {
		fp, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			for _, f := range files[:i] {
				f.Close()
			}
			return nil, err
		}
		files[i] = fp
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	return ReadDigital(files[0], files[1], files[2])
}
