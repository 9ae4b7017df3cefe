package domain

// InstrumentConfig describes how an instrument is quoted: the currency its
// prices are denominated in and the monetary value of one point of movement
// for one lot.
type InstrumentConfig struct {
	NativeCurrency string  // ISO currency code the instrument is quoted in
	PointValue     float64 // Value of one unit of price movement per lot
}
