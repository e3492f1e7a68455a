package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterLocksAfterMaxFailures(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, time.Minute)
	ip := "203.0.113.7"

	for i := 0; i < 3; i++ {
		allowed, _, _ := rl.Check(ip)
		if !allowed {
			t.Fatalf("Expected attempt %d to be allowed", i+1)
		}
		rl.RecordAttempt(ip, false)
	}

	allowed, remaining, lock := rl.Check(ip)
	if allowed {
		t.Fatal("Expected IP to be locked after max failures")
	}
	if remaining != 0 {
		t.Errorf("Expected 0 remaining attempts, got %d", remaining)
	}
	if lock <= 0 {
		t.Errorf("Expected a positive lock duration, got %v", lock)
	}
}

func TestRateLimiterSuccessClearsHistory(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, time.Minute)
	ip := "203.0.113.7"

	rl.RecordAttempt(ip, false)
	rl.RecordAttempt(ip, false)
	rl.RecordAttempt(ip, true)

	allowed, remaining, _ := rl.Check(ip)
	if !allowed {
		t.Fatal("Expected IP to be allowed after a successful login")
	}
	if remaining != 3 {
		t.Errorf("Expected full attempt budget after success, got %d", remaining)
	}
}

func TestRateLimiterDoesNotMixAddresses(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, time.Minute)

	rl.RecordAttempt("203.0.113.7", false)
	rl.RecordAttempt("203.0.113.7", false)

	if allowed, _, _ := rl.Check("203.0.113.7"); allowed {
		t.Fatal("Expected the failing IP to be locked")
	}
	if allowed, _, _ := rl.Check("203.0.113.8"); !allowed {
		t.Fatal("Expected an unrelated IP to be allowed")
	}
}

func TestRateLimiterWindowExpiryResets(t *testing.T) {
	rl := NewRateLimiter(3, 10*time.Millisecond, time.Minute)
	ip := "203.0.113.7"

	rl.RecordAttempt(ip, false)
	rl.RecordAttempt(ip, false)
	time.Sleep(20 * time.Millisecond)

	allowed, remaining, _ := rl.Check(ip)
	if !allowed {
		t.Fatal("Expected IP to be allowed after the window expired")
	}
	if remaining != 3 {
		t.Errorf("Expected full attempt budget after window expiry, got %d", remaining)
	}
}
