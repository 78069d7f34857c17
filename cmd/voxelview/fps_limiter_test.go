package main

import (
	"testing"
	"time"
)

func TestFPSLimiterPaces(t *testing.T) {
	f := &fpsLimiter{limit: 100}
	start := time.Now()
	for i := 0; i < 5; i++ {
		f.Wait()
	}
	if el := time.Since(start); el < 45*time.Millisecond {
		t.Errorf("5 frames at 100 fps took %v", el)
	}
}

func TestFPSLimiterDisabled(t *testing.T) {
	f := &fpsLimiter{}
	start := time.Now()
	for i := 0; i < 1000; i++ {
		f.Wait()
	}
	if el := time.Since(start); el > 100*time.Millisecond {
		t.Errorf("disabled limiter slept for %v", el)
	}
	if !f.next.IsZero() {
		t.Errorf("disabled limiter kept a deadline")
	}
}
