package models

import (
	"testing"
	"time"
)

func baseLog(scheduled time.Time) *DoseLog {
	return &DoseLog{
		ID:            "log-1",
		UserID:        "user-1",
		MedicineID:    "med-1",
		MedicineName:  "Aspirin",
		Dosage:        "100mg",
		Slot:          "1",
		ScheduledTime: scheduled,
		Status:        StatusPending,
	}
}

func TestMarkTakenOnTime(t *testing.T) {
	scheduled := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	log := baseLog(scheduled)

	log.MarkTaken(scheduled.Add(10 * time.Minute))

	if log.Status != StatusTaken {
		t.Errorf("Expected status %s, got %s", StatusTaken, log.Status)
	}
	if log.IsOnTime == nil || !*log.IsOnTime {
		t.Error("Expected dose to be on time")
	}
	if log.DelayMinutes != 10 {
		t.Errorf("Expected delay 10, got %d", log.DelayMinutes)
	}
}

func TestMarkTakenLate(t *testing.T) {
	scheduled := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	log := baseLog(scheduled)

	log.MarkTaken(scheduled.Add(45 * time.Minute))

	if log.Status != StatusTakenLate {
		t.Errorf("Expected status %s, got %s", StatusTakenLate, log.Status)
	}
	if log.IsOnTime == nil || *log.IsOnTime {
		t.Error("Expected dose to be late")
	}
	if log.DelayMinutes != 45 {
		t.Errorf("Expected delay 45, got %d", log.DelayMinutes)
	}
}

func TestMarkTakenEarly(t *testing.T) {
	scheduled := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	log := baseLog(scheduled)

	// 20 minutes early: on time, no recorded delay
	log.MarkTaken(scheduled.Add(-20 * time.Minute))

	if log.Status != StatusTaken {
		t.Errorf("Expected status %s, got %s", StatusTaken, log.Status)
	}
	if log.IsOnTime == nil || !*log.IsOnTime {
		t.Error("Expected early dose within window to be on time")
	}
	if log.DelayMinutes != 0 {
		t.Errorf("Expected delay 0 for early dose, got %d", log.DelayMinutes)
	}
}

func TestMarkTakenAtWindowEdge(t *testing.T) {
	scheduled := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	log := baseLog(scheduled)

	// Exactly the window boundary still counts as on time
	log.MarkTaken(scheduled.Add(OnTimeWindowMinutes * time.Minute))

	if log.Status != StatusTaken {
		t.Errorf("Expected status %s at window edge, got %s", StatusTaken, log.Status)
	}
	if log.IsOnTime == nil || !*log.IsOnTime {
		t.Error("Expected dose at window edge to be on time")
	}
}

func TestMarkSnoozed(t *testing.T) {
	scheduled := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	log := baseLog(scheduled)
	now := scheduled.Add(5 * time.Minute)

	log.MarkSnoozed(now, 15, false)

	if log.Status != StatusSnoozed {
		t.Errorf("Expected status %s, got %s", StatusSnoozed, log.Status)
	}
	if log.SnoozeCount != 1 {
		t.Errorf("Expected snooze count 1, got %d", log.SnoozeCount)
	}
	if log.SnoozedUntil == nil || !log.SnoozedUntil.Equal(now.Add(15*time.Minute)) {
		t.Errorf("Expected snoozedUntil %v, got %v", now.Add(15*time.Minute), log.SnoozedUntil)
	}
}

func TestMarkSnoozedEscalatesToMissed(t *testing.T) {
	scheduled := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	log := baseLog(scheduled)
	now := scheduled

	for i := 0; i < SnoozeEscalationLimit; i++ {
		log.MarkSnoozed(now, 30, true)
		if log.Status != StatusSnoozed {
			t.Fatalf("Snooze %d: expected status %s, got %s", i+1, StatusSnoozed, log.Status)
		}
		now = now.Add(30 * time.Minute)
	}

	log.MarkSnoozed(now, 30, true)

	if log.Status != StatusMissed {
		t.Errorf("Expected escalation to %s, got %s", StatusMissed, log.Status)
	}
	if log.SnoozedUntil != nil {
		t.Error("Expected snoozedUntil cleared on escalation")
	}
}

func TestMarkSnoozedNoEscalationOnMobilePath(t *testing.T) {
	scheduled := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	log := baseLog(scheduled)

	for i := 0; i < SnoozeEscalationLimit+3; i++ {
		log.MarkSnoozed(scheduled, 15, false)
	}

	if log.Status != StatusSnoozed {
		t.Errorf("Expected status %s without escalation, got %s", StatusSnoozed, log.Status)
	}
}

func TestMarkSkippedKeepsNotesWithoutReason(t *testing.T) {
	log := baseLog(time.Now())
	log.Notes = "before lunch"

	log.MarkSkipped("")

	if log.Status != StatusSkipped {
		t.Errorf("Expected status %s, got %s", StatusSkipped, log.Status)
	}
	if log.Notes != "before lunch" {
		t.Errorf("Expected notes preserved, got %q", log.Notes)
	}

	log2 := baseLog(time.Now())
	log2.MarkSkipped("felt nauseous")
	if log2.Notes != "felt nauseous" {
		t.Errorf("Expected reason in notes, got %q", log2.Notes)
	}
}

func TestIsTerminalStatus(t *testing.T) {
	terminal := []string{StatusTaken, StatusTakenLate, StatusSkipped, StatusMissed}
	for _, s := range terminal {
		if !IsTerminalStatus(s) {
			t.Errorf("Expected %s to be terminal", s)
		}
	}
	live := []string{StatusPending, StatusSnoozed}
	for _, s := range live {
		if IsTerminalStatus(s) {
			t.Errorf("Expected %s to be live", s)
		}
	}
}
