package stream

import "testing"

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestDemandAddAndConsume(t *testing.T) {
	var d DemandAccumulator

	if d.Outstanding() != 0 {
		t.Fatalf("new accumulator should start at 0, got %d", d.Outstanding())
	}

	d.Add(10)
	d.Add(0)
	if d.Outstanding() != 10 {
		t.Fatalf("want 10 outstanding, got %d", d.Outstanding())
	}

	d.Consume(4)
	if d.Outstanding() != 6 {
		t.Fatalf("want 6 outstanding after consuming 4, got %d", d.Outstanding())
	}

	d.Consume(6)
	if d.Outstanding() != 0 {
		t.Fatalf("want 0 outstanding, got %d", d.Outstanding())
	}
}

func TestDemandInvariants(t *testing.T) {
	var d DemandAccumulator
	d.Add(3)

	mustPanic(t, "negative add", func() { d.Add(-1) })
	mustPanic(t, "negative consume", func() { d.Consume(-1) })
	mustPanic(t, "over-consume", func() { d.Consume(4) })

	// a failed consume must not have touched the credit
	if d.Outstanding() != 3 {
		t.Fatalf("outstanding changed by rejected operations, got %d", d.Outstanding())
	}
}
