package calendar

import "testing"

func TestParseRef(t *testing.T) {
	tests := []struct {
		in       string
		wantKind Kind
		wantID   int64
		wantErr  bool
	}{
		{"42", KindAppointment, 42, false},
		{"lead-7", KindLead, 7, false},
		{"lead-0", 0, 0, true},
		{"lead--3", 0, 0, true},
		{"lead-", 0, 0, true},
		{"lead-abc", 0, 0, true},
		{"", 0, 0, true},
		{"abc", 0, 0, true},
		{"-5", 0, 0, true},
		{"0", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ref, err := ParseRef(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRef(%q) expected error, got %+v", tt.in, ref)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRef(%q): %v", tt.in, err)
			}
			if ref.Kind != tt.wantKind || ref.ID != tt.wantID {
				t.Errorf("ParseRef(%q) = %+v, want kind=%v id=%d", tt.in, ref, tt.wantKind, tt.wantID)
			}
		})
	}
}

func TestRefString(t *testing.T) {
	if got := (Ref{Kind: KindLead, ID: 9}).String(); got != "lead-9" {
		t.Errorf("lead ref = %q, want lead-9", got)
	}
	if got := (Ref{Kind: KindAppointment, ID: 5}).String(); got != "5" {
		t.Errorf("appointment ref = %q, want 5", got)
	}
}

func TestParseRefRoundTrip(t *testing.T) {
	for _, s := range []string{"1", "lead-1", "123456789", "lead-987654"} {
		ref, err := ParseRef(s)
		if err != nil {
			t.Fatalf("ParseRef(%q): %v", s, err)
		}
		if ref.String() != s {
			t.Errorf("round trip %q -> %q", s, ref.String())
		}
	}
}
