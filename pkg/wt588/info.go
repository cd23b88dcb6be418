package wt588

// DeviceInfo describes the chip and this driver.
type DeviceInfo struct {
	ChipName         string
	Manufacturer     string
	Interface        string
	SupplyVoltageMin float32 // volts
	SupplyVoltageMax float32 // volts
	MaxCurrent       float32 // milliamps
	TemperatureMin   float32 // degrees Celsius
	TemperatureMax   float32 // degrees Celsius
	DriverVersion    uint32
}

// Info returns the static chip description.
func Info() DeviceInfo {
	return DeviceInfo{
		ChipName:         "Waytronic Electronic WT588E02B",
		Manufacturer:     "Waytronic Electronic",
		Interface:        "SPI",
		SupplyVoltageMin: 2.0,
		SupplyVoltageMax: 5.5,
		MaxCurrent:       16.0,
		TemperatureMin:   -20.0,
		TemperatureMax:   85.0,
		DriverVersion:    1000,
	}
}
