// Package cost holds the per-request cost estimates in integer micro-units.
package cost

import (
	"math"
	"strconv"
)

// Micros is a monetary amount in millionths of a currency unit.
type Micros int64

// Per-request estimates.
const (
	TextBasic    Micros = 200    // 0.0002 per basic-model chat turn
	TextAdvanced Micros = 3_000  // 0.003 per advanced-model chat turn
	Voice        Micros = 6_000  // 0.006 per transcription
	Image        Micros = 10_000 // 0.01 per screenshot or scam image analysis
)

// DisplayDigits is the number of fraction digits clients see.
const DisplayDigits = 4

const microsPerUnit = 1_000_000

// FromUnits converts a currency amount (e.g. 0.003) into Micros, rounding to the nearest micro.
func FromUnits(v float64) Micros {
	return Micros(math.Round(v * microsPerUnit))
}

// Units returns the amount in currency units.
func (m Micros) Units() float64 { return float64(m) / microsPerUnit }

// Format renders the amount with a fixed number of fraction digits.
func (m Micros) Format(digits int) string {
	return strconv.FormatFloat(m.Units(), 'f', digits, 64)
}

func (m Micros) String() string { return m.Format(DisplayDigits) }

// Table is the set of per-request estimates in use.
type Table struct {
	TextBasic    Micros
	TextAdvanced Micros
	Voice        Micros
	Image        Micros
}

// DefaultTable returns the built-in estimates.
func DefaultTable() Table {
	return Table{
		TextBasic:    TextBasic,
		TextAdvanced: TextAdvanced,
		Voice:        Voice,
		Image:        Image,
	}
}
