package domain

// PositionSnapshot is a read-only view of an open position as supplied by the
// host application's repository. The engine never mutates it; closing or
// reopening positions is the host's responsibility.
type PositionSnapshot struct {
	ID         int64     // Unique identifier assigned by the repository
	Symbol     string    // Canonical instrument symbol (e.g., "DAX", "EURUSD")
	Direction  Direction // LONG or SHORT
	EntryPrice float64   // Price at which the position was entered
	StopLoss   float64   // Stop-loss level (0 if not set)
	TakeProfit float64   // Take-profit level (0 if not set)
	LotSize    float64   // Size of the position in lots
	OwnerID    int64     // Identifier of the owning journal user
}

// HasProtection reports whether the position carries a stop-loss or
// take-profit level worth monitoring.
func (p *PositionSnapshot) HasProtection() bool {
	return p.StopLoss > 0 || p.TakeProfit > 0
}
