package risk

import "testing"

func TestLevelStatusRoundTrip(t *testing.T) {
	for _, l := range []Level{Low, Medium, High} {
		back, ok := l.Status().Level()
		if !ok {
			t.Fatalf("%s: status %s has no level", l, l.Status())
		}
		if ParseLevel(string(back)) != ParseLevel(string(l)) {
			t.Errorf("round trip changed %s into %s", l, back)
		}
	}
}

func TestTableMapping(t *testing.T) {
	tests := []struct {
		status Status
		level  Level
		stored string
	}{
		{Safe, Low, "safe"},
		{Risky, Medium, "risky"},
		{Restricted, High, "restricted"},
	}
	for _, tt := range tests {
		if got, _ := tt.status.Level(); got != tt.level {
			t.Errorf("%s.Level() = %s, want %s", tt.status, got, tt.level)
		}
		if got := tt.level.Status(); got != tt.status {
			t.Errorf("%s.Status() = %s, want %s", tt.level, got, tt.status)
		}
		if got := tt.status.Stored(); got != tt.stored {
			t.Errorf("%s.Stored() = %s, want %s", tt.status, got, tt.stored)
		}
		if got := ParseStored(tt.stored); got != tt.status {
			t.Errorf("ParseStored(%s) = %s", tt.stored, got)
		}
	}
	if _, ok := Unknown.Level(); ok {
		t.Error("Unknown should have no level")
	}
	if Unknown.Stored() != "unknown" {
		t.Errorf("Unknown stored as %q", Unknown.Stored())
	}
}

func TestParseLevelVocabulary(t *testing.T) {
	tests := map[string]Level{
		"HIGH":         High,
		" restricted ": High,
		"Moderate":     Medium,
		"medium-risk":  Medium,
		"low_risk":     Low,
		"Safe":         Low,
		"toxic":        High,
		"gibberish":    Low,
		"":             Low,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
	if got := ParseStatus("who knows"); got != Safe {
		t.Errorf("ParseStatus default = %s, want Safe", got)
	}
	if got := ParseStatus("Restricted"); got != Restricted {
		t.Errorf("ParseStatus(Restricted) = %s", got)
	}
}

func TestSeverityDominance(t *testing.T) {
	statuses := []Status{Safe, Safe, Unknown, Restricted, Safe, Risky}
	if got := HighestStatus(statuses...); got != Restricted {
		t.Errorf("HighestStatus = %s, want Restricted", got)
	}
	if got := HighestStatus(Unknown, Unknown); got != Safe {
		t.Errorf("all unknown should yield Safe, got %s", got)
	}
	if got := HighestLevel(Low, Low, High, Medium); got != High {
		t.Errorf("HighestLevel = %s, want HIGH", got)
	}
	if got := HighestLevel(); got != Low {
		t.Errorf("empty HighestLevel = %s", got)
	}
}

func TestSummaryAdd(t *testing.T) {
	var s Summary
	s.Add(Safe)
	s.Add(Unknown)
	s.AddLevel(High)
	s.AddLevel(Medium)
	if s.Safe != 1 || s.Unknown != 1 || s.Restricted != 1 || s.Risky != 1 || s.Total != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.Safe+s.Risky+s.Restricted+s.Unknown != s.Total {
		t.Fatal("buckets must sum to total")
	}
}
