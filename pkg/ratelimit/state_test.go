package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestState_Remaining(t *testing.T) {
	tests := []struct {
		name       string
		until      time.Time
		wantActive bool
	}{
		{"zero state", time.Time{}, false},
		{"past deadline", time.Now().Add(-time.Second), false},
		{"future deadline", time.Now().Add(5 * time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{CooldownUntil: tt.until}
			if got := s.Active(); got != tt.wantActive {
				t.Errorf("Active() = %v, want %v", got, tt.wantActive)
			}
			if !tt.wantActive && s.Remaining() != 0 {
				t.Errorf("Remaining() = %v, want 0", s.Remaining())
			}
		})
	}
}

func TestIsThrottled(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, false},
		{404, false},
		{429, true},
		{430, true},
		{500, false},
	}

	for _, tt := range tests {
		if got := IsThrottled(tt.status); got != tt.want {
			t.Errorf("IsThrottled(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"missing", "", DefaultCooldown},
		{"seconds", "4", 4 * time.Second},
		{"fractional seconds", "1.5", 1500 * time.Millisecond},
		{"zero", "0", DefaultCooldown},
		{"garbage", "soon", DefaultCooldown},
		{"capped", "3600", MaxCooldown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			if got := ParseRetryAfter(h); got != tt.want {
				t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", time.Now().Add(10*time.Second).UTC().Format(http.TimeFormat))

	got := ParseRetryAfter(h)
	if got < 8*time.Second || got > 10*time.Second {
		t.Errorf("ParseRetryAfter(date) = %v, want about 10s", got)
	}
}
