package portfolio

// DrawdownTracker derives CurrentDrawdownPct from a running equity peak
type DrawdownTracker struct {
	peak float64
}

// NewDrawdownTracker starts tracking from an initial peak value
func NewDrawdownTracker(initialPeak float64) *DrawdownTracker {
	return &DrawdownTracker{peak: initialPeak}
}

// Update records the latest portfolio value and returns the drawdown from peak in percent
func (d *DrawdownTracker) Update(value float64) float64 {
	if value > d.peak {
		d.peak = value
	}
	if d.peak <= 0 {
		return 0
	}
	return (d.peak - value) / d.peak * 100
}

// Apply updates the tracker with the state's value and writes the drawdown into it
func (d *DrawdownTracker) Apply(s *State) {
	s.CurrentDrawdownPct = d.Update(s.PortfolioValue)
}

// Peak returns the highest value seen
func (d *DrawdownTracker) Peak() float64 {
	return d.peak
}
