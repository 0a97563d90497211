package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewAt_MonotonicWithinMillisecond(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	prev := NewAt(at)
	for i := 0; i < 100; i++ {
		next := NewAt(at)
		if next <= prev {
			t.Fatalf("expected %s > %s", next, prev)
		}
		prev = next
	}
}

func TestNew_ParsesAsULID(t *testing.T) {
	id, err := ulid.Parse(New())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if time.Since(ulid.Time(id.Time())) > time.Minute {
		t.Fatalf("unexpected timestamp %v", ulid.Time(id.Time()))
	}
}
