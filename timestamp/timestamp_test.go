package timestamp

import (
	"testing"
	"time"
)

func TestTimestamp(t *testing.T) {
	ts := FromUnix(1700000000)
	if st(ts.Marshal(nil)) != "1700000000" {
		t.Fatal("marshal")
	}
	if !ts.Time().Equal(time.Unix(1700000000, 0)) {
		t.Fatal("time")
	}
	if d := time.Since(Now().Time()); d < 0 || d > 2*time.Second {
		t.Fatalf("now is off by %v", d)
	}
}
