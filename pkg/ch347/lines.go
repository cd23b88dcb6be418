package ch347

// Pins assigns bridge GPIOs to the four bus lines.
type Pins struct {
	SCLK, MOSI, CS, MISO Pin
}

// DefaultPins follows the bridge's own SPI pinout where a GPIO exists for
// it. MOSI has no GPIO of its own and uses SCS1.
var DefaultPins = Pins{SCLK: GPIO0, MISO: GPIO1, CS: GPIO2, MOSI: GPIO5}

// OutputLine is a bridge GPIO configured as an output.
type OutputLine struct {
	gpio *GPIO
	pin  Pin
	idle bool
}

// Init configures the pin as an output at its idle level.
func (l *OutputLine) Init() error { return l.gpio.WritePin(l.pin, true, l.idle) }

// Deinit returns the pin to input mode.
func (l *OutputLine) Deinit() error { return l.gpio.WritePin(l.pin, false, false) }

func (l *OutputLine) Write(high bool) error { return l.gpio.WritePin(l.pin, true, high) }

// InputLine is a bridge GPIO configured as an input.
type InputLine struct {
	gpio *GPIO
	pin  Pin
}

func (l *InputLine) Init() error { return l.gpio.WritePin(l.pin, false, false) }
func (l *InputLine) Deinit() error { return nil }

func (l *InputLine) Read() (bool, error) { return l.gpio.ReadPin(l.pin) }

// Lines bundles the four bus lines of one bridge.
type Lines struct {
	SCLK, MOSI, CS *OutputLine
	MISO           *InputLine
}

// Lines returns the bus lines for pins. SCLK and MOSI idle low, CS idles high.
func (g *GPIO) Lines(pins Pins) Lines {
	return Lines{
		SCLK: &OutputLine{gpio: g, pin: pins.SCLK},
		MOSI: &OutputLine{gpio: g, pin: pins.MOSI},
		CS:   &OutputLine{gpio: g, pin: pins.CS, idle: true},
		MISO: &InputLine{gpio: g, pin: pins.MISO},
	}
}
