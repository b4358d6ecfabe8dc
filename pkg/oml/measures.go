package oml

import "fmt"

// Payload columns of the measurement types the testbed tools plot.
var (
	ConsumptionMeasures = []Measure{
		{Name: "power", Kind: KindFloat, Label: "Power (W)"},
		{Name: "voltage", Kind: KindFloat, Label: "Voltage (V)"},
		{Name: "current", Kind: KindFloat, Label: "Current (A)"},
	}

	RadioMeasures = []Measure{
		{Name: "channel", Kind: KindInt, Label: "Channel"},
		{Name: "rssi", Kind: KindInt, Label: "RSSI (dBm)"},
	}

	RobotPoseMeasures = []Measure{
		{Name: "x", Kind: KindFloat, Label: "X"},
		{Name: "y", Kind: KindFloat, Label: "Y"},
		{Name: "theta", Kind: KindFloat, Label: "yaw angle (rad)"},
	}
)

// MeasuresFor returns the payload columns shipped for a measurement type.
// Types without a shipped schema (event, sniffer) report false.
func MeasuresFor(typeName string) ([]Measure, bool) {
	var ms []Measure
	switch typeName {
	case Consumption:
		ms = ConsumptionMeasures
	case Radio:
		ms = RadioMeasures
	case RobotPose:
		ms = RobotPoseMeasures
	default:
		return nil, false
	}
	out := make([]Measure, len(ms))
	copy(out, ms)
	return out, true
}

// LoaderFor returns a loader using the shipped schema of typeName.
func LoaderFor(typeName string) (*Loader, error) {
	if _, err := LookupType(typeName); err != nil {
		return nil, err
	}
	ms, ok := MeasuresFor(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: no payload schema shipped for %q", ErrInvalidSchema, typeName)
	}
	return NewLoader(typeName, ms...)
}
