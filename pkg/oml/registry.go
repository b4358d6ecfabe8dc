package oml

import (
	"fmt"
	"sort"
)

// MeasurementType is a registered category of OML record and the integer tag
// that identifies it on the wire.
type MeasurementType struct {
	Name string
	Tag  int64
}

// Registered measurement type names.
const (
	Consumption = "consumption"
	Radio       = "radio"
	Event       = "event"
	Sniffer     = "sniffer"
	RobotPose   = "robot_pose"
)

var registry = map[string]int64{
	Consumption: 1,
	Radio:       2,
	Event:       3,
	Sniffer:     4,
	RobotPose:   10,
}

// LookupType returns the registered measurement type for name.
func LookupType(name string) (MeasurementType, error) {
	tag, ok := registry[name]
	if !ok {
		return MeasurementType{}, fmt.Errorf("%w: %q", ErrUnknownMeasurementType, name)
	}
	return MeasurementType{Name: name, Tag: tag}, nil
}

// TypeForTag returns the measurement type registered with tag, if any.
func TypeForTag(tag int64) (MeasurementType, bool) {
	for name, t := range registry {
		if t == tag {
			return MeasurementType{Name: name, Tag: t}, true
		}
	}
	return MeasurementType{}, false
}

// Types lists every registered measurement type ordered by tag.
func Types() []MeasurementType {
	types := make([]MeasurementType, 0, len(registry))
	for name, tag := range registry {
		types = append(types, MeasurementType{Name: name, Tag: tag})
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Tag < types[j].Tag })
	return types
}

func (m MeasurementType) String() string {
	return m.Name
}
