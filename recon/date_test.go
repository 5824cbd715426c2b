package recon_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alms/recon-engine/recon"
)

func TestParseDate_AcceptedLayouts(t *testing.T) {
	want := recon.NewDate(2024, time.September, 15)
	for _, in := range []string{
		"2024-09-15",
		"2024-09-15 13:45:00",
		"2024-09-15T13:45:00Z",
	} {
		got, err := recon.ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := recon.ParseDate("Sep 15"); err == nil {
		t.Error("ParseDate should reject an unrecognized layout")
	}
}

func TestParseDate_RejectsAmbiguousSlashDates(t *testing.T) {
	// 02/03/2013 is March 2nd or February 3rd depending on locale; a
	// wrong guess can move a record across a matching window, so the
	// row must fail and be skipped rather than parsed either way.
	for _, in := range []string{"02/03/2013", "09/15/2024"} {
		if _, err := recon.ParseDate(in); err == nil {
			t.Errorf("ParseDate(%q) should be rejected", in)
		}
	}
}

func TestDaysApart_Symmetric(t *testing.T) {
	a := recon.NewDate(2024, time.September, 3)
	b := recon.NewDate(2024, time.September, 5)
	if got := recon.DaysApart(a, b); got != 2 {
		t.Errorf("DaysApart = %d, want 2", got)
	}
	if got := recon.DaysApart(b, a); got != 2 {
		t.Errorf("DaysApart reversed = %d, want 2", got)
	}
	if got := recon.DaysApart(a, a); got != 0 {
		t.Errorf("DaysApart same day = %d, want 0", got)
	}
}

func TestWithinWindow_InclusiveBoundary(t *testing.T) {
	a := recon.NewDate(2024, time.September, 1)
	if !recon.WithinWindow(a, a.AddDays(3), 3) {
		t.Error("window boundary should be inclusive")
	}
	if recon.WithinWindow(a, a.AddDays(4), 3) {
		t.Error("4 days apart should be outside a 3-day window")
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := recon.NewDate(2024, time.October, 1)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-10-01"` {
		t.Errorf("marshal = %s, want \"2024-10-01\"", b)
	}
	var back recon.Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Errorf("round trip = %s, want %s", back, d)
	}
}
