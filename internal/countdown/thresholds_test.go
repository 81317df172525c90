package countdown

import "testing"

func TestNewThresholdPolicy(t *testing.T) {
	cases := []struct {
		name         string
		cfg          ThresholdConfig
		wantUrgent   int64
		wantCritical int64
		wantErr      bool
	}{
		{name: "defaults", cfg: ThresholdConfig{}, wantUrgent: DefaultUrgentMs, wantCritical: DefaultCriticalMs},
		{name: "explicit", cfg: ThresholdConfig{UrgentMs: Ms(5000), CriticalMs: Ms(1000)}, wantUrgent: 5000, wantCritical: 1000},
		{name: "equal bounds", cfg: ThresholdConfig{UrgentMs: Ms(1000), CriticalMs: Ms(1000)}, wantUrgent: 1000, wantCritical: 1000},
		{name: "zero bounds", cfg: ThresholdConfig{UrgentMs: Ms(0), CriticalMs: Ms(0)}, wantUrgent: 0, wantCritical: 0},
		{name: "urgent only above default critical", cfg: ThresholdConfig{UrgentMs: Ms(7_200_000)}, wantUrgent: 7_200_000, wantCritical: DefaultCriticalMs},
		{name: "urgent only below default critical", cfg: ThresholdConfig{UrgentMs: Ms(300_000)}, wantUrgent: 300_000, wantCritical: 300_000},
		{name: "urgent only one second", cfg: ThresholdConfig{UrgentMs: Ms(1000)}, wantUrgent: 1000, wantCritical: 1000},
		{name: "critical only", cfg: ThresholdConfig{CriticalMs: Ms(60_000)}, wantUrgent: DefaultUrgentMs, wantCritical: 60_000},
		{name: "critical only above default urgent", cfg: ThresholdConfig{CriticalMs: Ms(7_200_000)}, wantUrgent: 7_200_000, wantCritical: 7_200_000},
		{name: "critical above urgent", cfg: ThresholdConfig{UrgentMs: Ms(1000), CriticalMs: Ms(2000)}, wantErr: true},
		{name: "negative urgent", cfg: ThresholdConfig{UrgentMs: Ms(-1)}, wantErr: true},
		{name: "negative critical", cfg: ThresholdConfig{CriticalMs: Ms(-1)}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy, err := NewThresholdPolicy(tc.cfg)
			if tc.wantErr {
				if !IsConfigError(err) {
					t.Fatalf("expected ConfigError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if policy.UrgentMs() != tc.wantUrgent || policy.CriticalMs() != tc.wantCritical {
				t.Fatalf("expected %d/%d, got %d/%d", tc.wantUrgent, tc.wantCritical, policy.UrgentMs(), policy.CriticalMs())
			}
		})
	}
}

func TestThresholdPolicyClassify(t *testing.T) {
	policy := DefaultThresholdPolicy()
	if got := policy.Classify(DefaultUrgentMs + 1); got != Running {
		t.Fatalf("expected running, got %s", got)
	}
	if got := policy.Classify(DefaultUrgentMs - 1); got != Urgent {
		t.Fatalf("expected urgent, got %s", got)
	}
	if got := policy.Classify(DefaultCriticalMs - 1); got != Critical {
		t.Fatalf("expected critical, got %s", got)
	}

	zero, err := NewThresholdPolicy(ThresholdConfig{UrgentMs: Ms(0), CriticalMs: Ms(0)})
	if err != nil {
		t.Fatalf("NewThresholdPolicy: %v", err)
	}
	if got := zero.Classify(1); got != Running {
		t.Fatalf("zero thresholds should never classify urgent, got %s", got)
	}
}

func TestCountdownStateText(t *testing.T) {
	for _, state := range []CountdownState{NotStarted, Running, Urgent, Critical, Expired} {
		text, err := state.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", state, err)
		}
		var decoded CountdownState
		if err := decoded.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if decoded != state {
			t.Fatalf("expected %s, got %s", state, decoded)
		}
	}
	var s CountdownState
	if err := s.UnmarshalText([]byte("paused")); err == nil {
		t.Fatalf("expected error for unknown state")
	}
	if !Critical.AtLeast(Urgent) || Urgent.AtLeast(Critical) {
		t.Fatalf("severity ordering broken")
	}
}
