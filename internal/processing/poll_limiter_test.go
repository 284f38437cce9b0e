package processing

import (
	"testing"
	"time"
)

func TestPollLimiterThrottlesWithinWindow(t *testing.T) {
	current := time.Unix(1000, 0)
	limiter := newPollLimiter(time.Second, func() time.Time { return current })

	if !limiter.Allow("agent-1", "doc-1") {
		t.Fatal("first poll should be allowed")
	}
	if limiter.Allow("agent-1", "doc-1") {
		t.Fatal("second poll inside the window should be rejected")
	}
	if !limiter.Allow("agent-1", "doc-2") {
		t.Fatal("different document should not share the window")
	}
	if !limiter.Allow("agent-2", "doc-1") {
		t.Fatal("different user should not share the window")
	}

	current = current.Add(time.Second)
	if !limiter.Allow("agent-1", "doc-1") {
		t.Fatal("poll after the window should be allowed")
	}

	if limiter.RetryAfterSeconds() != 1 {
		t.Fatalf("expected retry-after of 1 second, got %d", limiter.RetryAfterSeconds())
	}
}
