package market

import "time"

const (
	poolAddr  = "0x1234567890123456789012345678901234567890"
	wethAddr  = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	tokenAddr = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
)

type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
