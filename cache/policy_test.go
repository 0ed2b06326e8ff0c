package cache

import (
	"testing"
	"time"
)

func TestPolicy_EffectiveTTL(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		override time.Duration
		want     time.Duration
	}{
		{
			name:     "override within bounds",
			policy:   Policy{DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour},
			override: 30 * time.Minute,
			want:     30 * time.Minute,
		},
		{
			name:     "zero override uses default",
			policy:   Policy{DefaultTTL: time.Hour, MaxTTL: 24 * time.Hour},
			override: 0,
			want:     time.Hour,
		},
		{
			name:     "override clamped to max",
			policy:   Policy{DefaultTTL: time.Hour, MaxTTL: 2 * time.Hour},
			override: 48 * time.Hour,
			want:     2 * time.Hour,
		},
		{
			name:     "no max leaves override untouched",
			policy:   Policy{DefaultTTL: time.Hour},
			override: 48 * time.Hour,
			want:     48 * time.Hour,
		},
		{
			name:     "negative override uses default",
			policy:   Policy{DefaultTTL: time.Minute},
			override: -time.Second,
			want:     time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestKeySetPolicy(t *testing.T) {
	p := KeySetPolicy()
	if !p.ShouldCache() {
		t.Error("KeySetPolicy should enable caching")
	}
	if p.DefaultTTL != DefaultKeySetTTL {
		t.Errorf("DefaultTTL = %v, want %v", p.DefaultTTL, DefaultKeySetTTL)
	}
}

func TestNoCachePolicy(t *testing.T) {
	if NoCachePolicy().ShouldCache() {
		t.Error("NoCachePolicy should disable caching")
	}
}
