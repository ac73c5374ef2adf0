// Package signal computes indicator-family signals from candle windows. All
// computations are pure functions of the window so cycles are replayable.
package signal

// Direction is the side a signal points to.
type Direction int

const (
	Neutral Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "NEUTRAL"
	}
}

// Opposite returns the other trading side; Neutral maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	default:
		return Neutral
	}
}

// Indicator family names.
const (
	FamilyMACross   = "ma_cross"
	FamilyRSI       = "rsi"
	FamilyBollinger = "bollinger"
	FamilyChannel   = "channel"
)

// Signal is one indicator family's reading for the current bar. Strength is
// in [0,1]; a Neutral direction always carries zero strength.
type Signal struct {
	Family    string
	Direction Direction
	Strength  float64
	Values    map[string]float64
}

// Set holds at most one signal per indicator family.
type Set map[string]Signal

// Direction returns the direction of the named family, Neutral if absent.
func (s Set) Direction(family string) Direction {
	return s[family].Direction
}
