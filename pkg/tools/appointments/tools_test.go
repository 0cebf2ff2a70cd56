package appointments

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
	"github.com/voxbridge-ai/voxbridge/pkg/tools"
)

func input(content string) sonic.ToolInput {
	return sonic.ToolInput{ToolUseID: "tu-1", Content: content}
}

func TestCheckAvailabilityByDoctor(t *testing.T) {
	t.Parallel()

	got, err := CheckAvailability{Store: NewStore()}.Execute(context.Background(), input(`{"doctorId":"doc1"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	m := got.(map[string]any)
	doctor := m["doctor"].(map[string]any)
	if doctor["name"] != "Dr. Sarah Chen" {
		t.Fatalf("doctor %v", doctor)
	}
	cal := m["calendar"].(string)
	if !strings.Contains(cal, "## Availability Table") || !strings.Contains(cal, "## Calendar View") {
		t.Fatalf("calendar missing sections:\n%s", cal)
	}
	if !strings.Contains(cal, "Friday, May 16, 2025") {
		t.Fatalf("calendar missing formatted date:\n%s", cal)
	}
}

func TestCheckAvailabilityBySpecialty(t *testing.T) {
	t.Parallel()

	got, err := CheckAvailability{Store: NewStore()}.Execute(context.Background(), input(`{"specialty":"Pediatrics"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	results := got.(map[string]any)["results"].([]map[string]any)
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}

	if _, err := (CheckAvailability{Store: NewStore()}).Execute(context.Background(), input(`{"specialty":"Dermatology"}`)); err == nil {
		t.Fatal("expected error for unknown specialty")
	}
}

func TestCheckAvailabilityRosterFallback(t *testing.T) {
	t.Parallel()

	got, err := CheckAvailability{Store: NewStore()}.Execute(context.Background(), input(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	doctors := got.(map[string]any)["doctors"].([]Doctor)
	if len(doctors) != 3 {
		t.Fatalf("roster has %d doctors", len(doctors))
	}
}

func TestCheckAppointmentsByPatient(t *testing.T) {
	t.Parallel()

	s := NewStore()
	got, err := CheckAppointments{Store: s}.Execute(context.Background(), input(`{"patientName":"Emma Wilson"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	m := got.(map[string]any)
	if m["patient"] != "Emma Wilson" {
		t.Fatalf("result %v", m)
	}
	if !strings.Contains(m["calendar"].(string), "Dr. Michael Rodriguez") {
		t.Fatalf("calendar %v", m["calendar"])
	}

	got, err = CheckAppointments{Store: s}.Execute(context.Background(), input(`{"patientName":"Nobody"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if msg := got.(map[string]any)["message"]; msg != "No appointments found for patient: Nobody" {
		t.Fatalf("message %v", msg)
	}
}

func TestCheckAppointmentsRequiresIdentifier(t *testing.T) {
	t.Parallel()

	if _, err := (CheckAppointments{Store: NewStore()}).Execute(context.Background(), input(`{}`)); err == nil {
		t.Fatal("expected error when neither doctorId nor patientName given")
	}
}

func TestScheduleHappyPath(t *testing.T) {
	t.Parallel()

	got, err := Schedule{Store: NewStore()}.Execute(context.Background(),
		input(`{"doctorId":"doc1","patientName":"Jane Doe","date":"2025-05-17","time":"09:00","reason":"Migraine"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	m := got.(map[string]any)
	if m["success"] != true {
		t.Fatalf("result %v", m)
	}
	confirmation := m["confirmationDetails"].(string)
	if !strings.Contains(confirmation, "Jane Doe") || !strings.Contains(confirmation, "Dr. Sarah Chen") {
		t.Fatalf("confirmation %q", confirmation)
	}
}

func TestScheduleMissingFields(t *testing.T) {
	t.Parallel()

	if _, err := (Schedule{Store: NewStore()}).Execute(context.Background(),
		input(`{"doctorId":"doc1","patientName":"Jane"}`)); err == nil {
		t.Fatal("expected missing-fields error")
	}
}

func TestCancelHappyPath(t *testing.T) {
	t.Parallel()

	got, err := Cancel{Store: NewStore()}.Execute(context.Background(), input(`{"appointmentId":"apt2"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	m := got.(map[string]any)
	cancelled := m["cancelledAppointment"].(map[string]any)
	if cancelled["patient"] != "Emma Wilson" || cancelled["doctorName"] != "Dr. Michael Rodriguez" {
		t.Fatalf("cancelled %v", cancelled)
	}
}

func TestCancelRequiresID(t *testing.T) {
	t.Parallel()

	if _, err := (Cancel{Store: NewStore()}).Execute(context.Background(), input(`{}`)); err == nil {
		t.Fatal("expected error without appointment ID")
	}
}

func TestToolsThroughRegistry(t *testing.T) {
	t.Parallel()

	r := tools.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)), Tools(NewStore()))
	if got := len(r.Specs()); got != 4 {
		t.Fatalf("registry advertises %d tools", got)
	}

	// Domain failures come back as {"error": ...} results, never as
	// dispatch errors.
	got, err := r.Dispatch(context.Background(), "schedule_appointment", input(`{"doctorId":"doc1"}`))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	m := got.(map[string]any)
	if m["error"] != "missing required fields" {
		t.Fatalf("result %v", m)
	}
}
