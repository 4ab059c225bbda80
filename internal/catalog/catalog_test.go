package catalog

import (
	"errors"
	"testing"
	"time"
)

func TestLookups(t *testing.T) {
	t.Parallel()

	d, err := DoctorByID(2)
	if err != nil {
		t.Fatalf("DoctorByID(2): %v", err)
	}
	if d.Price != 200 {
		t.Errorf("doctor 2 price = %d, want 200", d.Price)
	}
	if _, err := DoctorByID(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("DoctorByID(42) err = %v, want ErrNotFound", err)
	}

	s, err := ServiceByID(3)
	if err != nil {
		t.Fatalf("ServiceByID(3): %v", err)
	}
	if s.Price != 100 {
		t.Errorf("service 3 price = %d, want 100", s.Price)
	}
	if _, err := ServiceByID(0); !errors.Is(err, ErrNotFound) {
		t.Errorf("ServiceByID(0) err = %v, want ErrNotFound", err)
	}

	if _, err := ProductByID(6); err != nil {
		t.Errorf("ProductByID(6): %v", err)
	}
	if _, err := ProductByID(7); !errors.Is(err, ErrNotFound) {
		t.Errorf("ProductByID(7) err = %v, want ErrNotFound", err)
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	ds := Doctors()
	ds[0].Name = "changed"
	ds[0].Specialties[0] = "changed"
	again := Doctors()
	if again[0].Name == "changed" || again[0].Specialties[0] == "changed" {
		t.Error("Doctors() exposed shared state")
	}

	ts := TimeSlots()
	ts[0] = "midnight"
	if TimeSlots()[0] == "midnight" {
		t.Error("TimeSlots() exposed shared state")
	}
}

func TestFilterProducts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category string
		query    string
		wantIDs  []int
	}{
		{"all", AllCategory, "", []int{1, 2, 3, 4, 5, 6}},
		{"empty category", "", "", []int{1, 2, 3, 4, 5, 6}},
		{"dental", "dental", "", []int{2, 6}},
		{"search case-insensitive", AllCategory, "SERUM", []int{1}},
		{"category and search", "skincare", "moist", []int{3}},
		{"search misses category", "dental", "serum", nil},
		{"unknown category", "toys", "", nil},
		{"whitespace query", AllCategory, "  tooth ", []int{2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := FilterProducts(tt.category, tt.query)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("FilterProducts(%q, %q) = %d products, want %d", tt.category, tt.query, len(got), len(tt.wantIDs))
			}
			for i, p := range got {
				if p.ID != tt.wantIDs[i] {
					t.Errorf("product %d id = %d, want %d", i, p.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestBookingDates(t *testing.T) {
	t.Parallel()

	// Wednesday
	from := time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)
	dates := BookingDates(from)

	if len(dates) != BookingWindowDays {
		t.Fatalf("len = %d, want %d", len(dates), BookingWindowDays)
	}
	if dates[0].Date != "2026-10-14" || !dates[0].IsToday {
		t.Errorf("first date = %+v, want 2026-10-14 flagged today", dates[0])
	}
	if dates[1].IsToday {
		t.Error("second date flagged today")
	}
	// 2026-10-16 is a Friday, 2026-10-17 a Saturday, 2026-10-18 a Sunday
	if !dates[2].IsWeekend || !dates[3].IsWeekend || dates[4].IsWeekend {
		t.Errorf("weekend flags = %v %v %v, want true true false", dates[2].IsWeekend, dates[3].IsWeekend, dates[4].IsWeekend)
	}
	if dates[20].Date != "2026-11-03" {
		t.Errorf("last date = %q, want 2026-11-03", dates[20].Date)
	}

	if !InBookingWindow("2026-10-20", from) {
		t.Error("expected 2026-10-20 in window")
	}
	if InBookingWindow("2026-10-13", from) || InBookingWindow("2026-11-04", from) {
		t.Error("expected dates outside the window to be rejected")
	}
}

func TestIsTimeSlot(t *testing.T) {
	t.Parallel()

	if !IsTimeSlot("2:30 PM") {
		t.Error("2:30 PM should be a time slot")
	}
	if IsTimeSlot("1:00 PM") {
		t.Error("1:00 PM should not be a time slot")
	}
}
