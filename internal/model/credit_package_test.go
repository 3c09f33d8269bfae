package model

import "testing"

func intPtr(v int) *int { return &v }

func TestCreditPackage_Remaining(t *testing.T) {
	tests := []struct {
		name string
		pkg  *CreditPackage
		want int
	}{
		{"computed only", &CreditPackage{SessionCount: 10, SessionsAllocated: 3}, 7},
		{"stored larger", &CreditPackage{SessionCount: 10, SessionsAllocated: 10, SessionsRemaining: intPtr(2)}, 2},
		{"computed larger", &CreditPackage{SessionCount: 10, SessionsAllocated: 3, SessionsRemaining: intPtr(1)}, 7},
		{"over allocated floors at zero", &CreditPackage{SessionCount: 2, SessionsAllocated: 5}, 0},
		{"negative stored floors at zero", &CreditPackage{SessionCount: 2, SessionsAllocated: 5, SessionsRemaining: intPtr(-1)}, 0},
		{"nil package", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pkg.Remaining(); got != tt.want {
				t.Errorf("Expected remaining %d, got %d", tt.want, got)
			}
			if got := tt.pkg.HasCredit(); got != (tt.want > 0) {
				t.Errorf("Expected HasCredit=%v, got %v", tt.want > 0, got)
			}
		})
	}
}

func TestCreditPackage_HasDrift(t *testing.T) {
	if (&CreditPackage{SessionCount: 5, SessionsAllocated: 2}).HasDrift() {
		t.Error("Expected no drift without a stored figure")
	}
	if (&CreditPackage{SessionCount: 5, SessionsAllocated: 2, SessionsRemaining: intPtr(3)}).HasDrift() {
		t.Error("Expected no drift when figures agree")
	}
	if !(&CreditPackage{SessionCount: 5, SessionsAllocated: 2, SessionsRemaining: intPtr(4)}).HasDrift() {
		t.Error("Expected drift when figures disagree")
	}
}

func TestRecurrenceRule_IsValid(t *testing.T) {
	for _, r := range []RecurrenceRule{RecurrenceDaily, RecurrenceWeekdays, RecurrenceWeekly} {
		if !r.IsValid() {
			t.Errorf("Expected %s to be valid", r)
		}
	}
	for _, r := range []RecurrenceRule{"", "monthly", "Daily"} {
		if r.IsValid() {
			t.Errorf("Expected %q to be invalid", r)
		}
	}
}
