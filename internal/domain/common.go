package domain

// Direction represents the side of a position (LONG or SHORT).
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// IsValid reports whether the direction is one of the known values.
func (d Direction) IsValid() bool {
	return d == Long || d == Short
}

// AlertKind identifies which protective level a position crossed.
type AlertKind string

const (
	AlertStopLoss   AlertKind = "SL"
	AlertTakeProfit AlertKind = "TP"
)
