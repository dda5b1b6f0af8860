package program

// Counter names shared across subsystems. The header counter in particular
// is consumed both by the orchestrator (header prediction) and the program
// itself, which is why prediction has to peek rather than allocate.
const (
	HeaderCounter     = "HEADER"
	CustomStepCounter = "CUSTOM_STEP"
)

// Counters is a set of named monotonic counters.
type Counters struct {
	values map[string]int
}

// NewCounters returns an empty counter set. Every counter starts at zero.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]int)}
}

// Next increments the named counter and returns its new value.
func (c *Counters) Next(name string) int {
	c.values[name]++
	return c.values[name]
}

// Peek returns the current value of the named counter without consuming it.
func (c *Counters) Peek(name string) int {
	return c.values[name]
}
