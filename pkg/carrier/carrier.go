// Package carrier catalogs the GNSS signal bands used throughout the
// solver: their nominal frequency, derived wavelength, and a tolerant
// string parser for the common band aliases found in receiver firmware
// and RINEX observation codes.
package carrier

import (
	"fmt"
	"strings"
)

// SpeedOfLight is the vacuum speed of light in m/s.
const SpeedOfLight = 299792458.0

// Carrier identifies a GNSS signal band.
type Carrier uint8

// Supported carriers. Bands sharing a physical frequency (e.g. L1/E1/B1A-B1C)
// are distinct values but report identical Frequency().
const (
	L1 Carrier = iota
	L2
	L5
	L6
	E1
	E5
	E5A
	E5B
	E6
	B1AB1C
	B1I
	B2IB2B
	B2
	B2A
	B3
)

func (c Carrier) String() string {
	switch c {
	case L1:
		return "L1"
	case L2:
		return "L2"
	case L5:
		return "L5"
	case L6:
		return "L6"
	case E1:
		return "E1"
	case E5:
		return "E5"
	case E5A:
		return "E5A"
	case E5B:
		return "E5B"
	case E6:
		return "E6"
	case B1AB1C:
		return "B1A/B1C"
	case B1I:
		return "B1I"
	case B2IB2B:
		return "B2I/B2B"
	case B2:
		return "B2"
	case B2A:
		return "B2A"
	case B3:
		return "B3"
	default:
		return ""
	}
}

// Frequency returns the carrier's nominal frequency in Hz.
func (c Carrier) Frequency() float64 {
	switch c {
	case L1, E1, B1AB1C:
		return 1575.42e6
	case L2:
		return 1227.60e6
	case L5, E5A, B2A:
		return 1176.45e6
	case E5, B2:
		return 1191.795e6
	case L6, E6:
		return 1278.750e6
	case B3:
		return 1268.52e6
	case E5B, B2IB2B:
		return 1207.14e6
	case B1I:
		return 1561.098e6
	default:
		return 0
	}
}

// Wavelength returns c/f in meters.
func (c Carrier) Wavelength() float64 {
	f := c.Frequency()
	if f == 0 {
		return 0
	}
	return SpeedOfLight / f
}

// ErrInvalidFrequency is returned by Parse when the input does not match
// any known carrier alias.
var ErrInvalidFrequency = fmt.Errorf("carrier: unknown or non supported frequency")

// Parse is a tolerant carrier-band parser: it accepts the canonical names
// above plus common aliases (B1A, B1C, B2I, B2B individually fold into the
// unified B1A-B1C / B2I-B2B bands).
func Parse(s string) (Carrier, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	switch trimmed {
	case "L1":
		return L1, nil
	case "L2":
		return L2, nil
	case "L5":
		return L5, nil
	case "L6":
		return L6, nil
	case "E1":
		return E1, nil
	case "E5":
		return E5, nil
	case "E6":
		return E6, nil
	case "E5A":
		return E5A, nil
	case "E5B":
		return E5B, nil
	case "B1I":
		return B1I, nil
	case "B2":
		return B2, nil
	case "B3":
		return B3, nil
	case "B2A":
		return B2A, nil
	}

	switch {
	case strings.Contains(trimmed, "B1A"), strings.Contains(trimmed, "B1C"):
		return B1AB1C, nil
	case strings.Contains(trimmed, "B2I"), strings.Contains(trimmed, "B2B"):
		return B2IB2B, nil
	}

	return 0, ErrInvalidFrequency
}
