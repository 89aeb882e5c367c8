package stream

import "fmt"

// DemandAccumulator tracks outstanding downstream credit: messages the
// downstream pipeline has asked for but not yet been given. It is owned by a
// single producer goroutine and is not safe for concurrent use.
//
// Credit can never go negative. Consuming more than is outstanding means the
// scheduler requested more messages than it had credit for, which is a bug in
// the scheduler, so it panics rather than returning an error.
type DemandAccumulator struct {
	n int
}

// Add increases outstanding credit by n.
func (d *DemandAccumulator) Add(n int) {
	if n < 0 {
		panic(fmt.Sprintf("stream: negative demand increment %d", n))
	}

	d.n += n
}

// Consume decreases outstanding credit by n, typically by the number of
// messages a fetch returned.
func (d *DemandAccumulator) Consume(n int) {
	if n < 0 {
		panic(fmt.Sprintf("stream: negative demand consumption %d", n))
	}
	if n > d.n {
		panic(fmt.Sprintf("stream: consuming %d demand with only %d outstanding", n, d.n))
	}

	d.n -= n
}

// Outstanding returns the current credit.
func (d *DemandAccumulator) Outstanding() int {
	return d.n
}
