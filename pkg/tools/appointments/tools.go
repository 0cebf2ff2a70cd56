package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxbridge-ai/voxbridge/pkg/sonic"
	"github.com/voxbridge-ai/voxbridge/pkg/tools"
)

const checkAvailabilitySchema = `{
  "type": "object",
  "properties": {
    "doctorId": {
      "type": "string",
      "description": "ID of the doctor to check availability for (e.g., 'doc1' for Dr. Chen, 'doc2' for Dr. Rodriguez, 'doc3' for Dr. Johnson). Optional if specialty is provided."
    },
    "specialty": {
      "type": "string",
      "description": "Medical specialty to filter doctors by (e.g., 'Family Medicine', 'Cardiology', 'Pediatrics'). Optional if doctorId is provided."
    },
    "startDate": {
      "type": "string",
      "description": "Start date for availability search in YYYY-MM-DD format (optional)"
    },
    "endDate": {
      "type": "string",
      "description": "End date for availability search in YYYY-MM-DD format (optional)"
    }
  },
  "required": ["specialty"],
  "description": "At least one of doctorId or specialty must be provided to check availability."
}`

const checkAppointmentsSchema = `{
  "type": "object",
  "properties": {
    "doctorId": {
      "type": "string",
      "description": "ID of the doctor to check appointments for (e.g., 'doc1' for Dr. Chen, 'doc2' for Dr. Rodriguez, 'doc3' for Dr. Johnson). Optional if patientName is provided."
    },
    "patientName": {
      "type": "string",
      "description": "Full name of the patient to check appointments for. Optional if doctorId is provided."
    }
  },
  "required": ["patientName"],
  "description": "Either doctorId or patientName must be provided to check appointments."
}`

const scheduleSchema = `{
  "type": "object",
  "properties": {
    "doctorId": {
      "type": "string",
      "description": "ID of the doctor to schedule with (e.g., 'doc1' for Dr. Chen, 'doc2' for Dr. Rodriguez, 'doc3' for Dr. Johnson)."
    },
    "patientName": {
      "type": "string",
      "description": "Full name of the patient. You MUST ask for this information before scheduling."
    },
    "date": {
      "type": "string",
      "description": "Appointment date in YYYY-MM-DD format. You MUST confirm this date is available before scheduling."
    },
    "time": {
      "type": "string",
      "description": "Appointment time in HH:MM format (24-hour). You MUST confirm this time slot is available before scheduling."
    },
    "reason": {
      "type": "string",
      "description": "Reason for the appointment. You MUST ask for this information before scheduling."
    }
  },
  "required": ["doctorId", "patientName", "date", "time", "reason"],
  "description": "CRITICAL: ALL fields are required. You MUST collect patient name, doctor ID, date, time, and appointment reason from the user before scheduling. First use check_doctor_availability to find available slots before scheduling."
}`

const cancelSchema = `{
  "type": "object",
  "properties": {
    "appointmentId": {
      "type": "string",
      "description": "ID of the appointment to cancel (e.g., 'apt1', 'apt2', 'apt3'). You must first use check_appointments to find the appointment ID if the user doesn't provide it."
    }
  },
  "required": ["appointmentId"],
  "description": "You must provide a valid appointment ID to cancel an appointment. If the user doesn't know their appointment ID, use check_appointments first."
}`

// Tools returns the four scheduling executors bound to one store.
func Tools(store *Store) []tools.Executor {
	return []tools.Executor{
		CheckAvailability{Store: store},
		CheckAppointments{Store: store},
		Schedule{Store: store},
		Cancel{Store: store},
	}
}

func doctorSummary(d Doctor) map[string]any {
	return map[string]any{"id": d.ID, "name": d.Name, "specialty": d.Specialty}
}

// CheckAvailability answers "when is the doctor free": by doctor ID, by
// specialty, or (with neither) the full roster.
type CheckAvailability struct {
	Store *Store
}

func (CheckAvailability) Name() string { return "check_doctor_availability" }

func (CheckAvailability) Spec() sonic.ToolSpec {
	return sonic.ToolSpec{
		Name:        "check_doctor_availability",
		Description: "Checks which time slots are open for a doctor or a specialty",
		Schema:      checkAvailabilitySchema,
	}
}

func (t CheckAvailability) Execute(ctx context.Context, input sonic.ToolInput) (any, error) {
	var args struct {
		DoctorID  string `json:"doctorId"`
		Specialty string `json:"specialty"`
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}
	if err := tools.ParseArgs(input, &args); err != nil {
		return nil, err
	}

	if args.DoctorID != "" {
		av, ok := t.Store.Availability(args.DoctorID, args.StartDate, args.EndDate)
		if !ok {
			return nil, ErrDoctorNotFound
		}
		return availabilityResult(av), nil
	}

	if args.Specialty != "" {
		doctors := t.Store.DoctorsBySpecialty(args.Specialty)
		if len(doctors) == 0 {
			return nil, fmt.Errorf("no doctors found with specialty: %s", args.Specialty)
		}
		results := make([]map[string]any, 0, len(doctors))
		for _, d := range doctors {
			av, ok := t.Store.Availability(d.ID, args.StartDate, args.EndDate)
			if !ok {
				continue
			}
			results = append(results, availabilityResult(av))
		}
		return map[string]any{"results": results}, nil
	}

	return map[string]any{"doctors": t.Store.Doctors()}, nil
}

func availabilityResult(av DoctorAvailability) map[string]any {
	return map[string]any{
		"doctor":       doctorSummary(av.Doctor),
		"availability": av.Availability,
		"calendar":     formatCalendar(av.Availability, av.Doctor.Name),
	}
}

// CheckAppointments looks up existing bookings by doctor or by patient.
type CheckAppointments struct {
	Store *Store
}

func (CheckAppointments) Name() string { return "check_appointments" }

func (CheckAppointments) Spec() sonic.ToolSpec {
	return sonic.ToolSpec{
		Name:        "check_appointments",
		Description: "Looks up existing appointments for a patient or a doctor",
		Schema:      checkAppointmentsSchema,
	}
}

func (t CheckAppointments) Execute(ctx context.Context, input sonic.ToolInput) (any, error) {
	var args struct {
		DoctorID    string `json:"doctorId"`
		PatientName string `json:"patientName"`
	}
	if err := tools.ParseArgs(input, &args); err != nil {
		return nil, err
	}

	doctorName := func(id string) string {
		if d, ok := t.Store.DoctorByID(id); ok {
			return d.Name
		}
		return ""
	}

	if args.DoctorID != "" {
		d, ok := t.Store.DoctorByID(args.DoctorID)
		if !ok {
			return nil, ErrDoctorNotFound
		}
		appts := t.Store.DoctorAppointments(args.DoctorID)
		return map[string]any{
			"doctor":       doctorSummary(d),
			"appointments": appts,
			"calendar":     formatAppointmentsTable(appts, doctorName),
		}, nil
	}

	if args.PatientName != "" {
		appts := t.Store.PatientAppointments(args.PatientName)
		if len(appts) == 0 {
			return map[string]any{"message": fmt.Sprintf("No appointments found for patient: %s", args.PatientName)}, nil
		}
		return map[string]any{
			"patient":      args.PatientName,
			"appointments": appts,
			"calendar":     formatAppointmentsTable(appts, doctorName),
		}, nil
	}

	return nil, errors.New("either doctorId or patientName must be provided")
}

// Schedule books a new appointment after all five fields were collected.
type Schedule struct {
	Store *Store
}

func (Schedule) Name() string { return "schedule_appointment" }

func (Schedule) Spec() sonic.ToolSpec {
	return sonic.ToolSpec{
		Name:        "schedule_appointment",
		Description: "Books a new appointment in an open slot",
		Schema:      scheduleSchema,
	}
}

func (t Schedule) Execute(ctx context.Context, input sonic.ToolInput) (any, error) {
	var args struct {
		DoctorID    string `json:"doctorId"`
		PatientName string `json:"patientName"`
		Date        string `json:"date"`
		Time        string `json:"time"`
		Reason      string `json:"reason"`
	}
	if err := tools.ParseArgs(input, &args); err != nil {
		return nil, err
	}
	if args.DoctorID == "" || args.PatientName == "" || args.Date == "" || args.Time == "" || args.Reason == "" {
		return nil, errors.New("missing required fields")
	}

	apt, err := t.Store.Create(args.DoctorID, args.PatientName, args.Date, args.Time, args.Reason)
	if err != nil {
		return nil, err
	}
	d, _ := t.Store.DoctorByID(args.DoctorID)
	return map[string]any{
		"success":     true,
		"appointment": apt,
		"doctor":      doctorSummary(d),
		"confirmationDetails": fmt.Sprintf("Appointment scheduled for %s with %s on %s at %s for %s.",
			args.PatientName, d.Name, args.Date, args.Time, args.Reason),
	}, nil
}

// Cancel removes a booking by ID and returns its slot to availability.
type Cancel struct {
	Store *Store
}

func (Cancel) Name() string { return "cancel_appointment" }

func (Cancel) Spec() sonic.ToolSpec {
	return sonic.ToolSpec{
		Name:        "cancel_appointment",
		Description: "Cancels an existing appointment by its ID",
		Schema:      cancelSchema,
	}
}

func (t Cancel) Execute(ctx context.Context, input sonic.ToolInput) (any, error) {
	var args struct {
		AppointmentID string `json:"appointmentId"`
	}
	if err := tools.ParseArgs(input, &args); err != nil {
		return nil, err
	}
	if args.AppointmentID == "" {
		return nil, errors.New("appointment ID is required")
	}

	apt, err := t.Store.Cancel(args.AppointmentID)
	if err != nil {
		return nil, err
	}
	doctorName := "Unknown Doctor"
	if d, ok := t.Store.DoctorByID(apt.DoctorID); ok {
		doctorName = d.Name
	}
	return map[string]any{
		"success": true,
		"message": "Appointment cancelled successfully",
		"cancelledAppointment": map[string]any{
			"id":         apt.ID,
			"patient":    apt.PatientName,
			"doctorName": doctorName,
			"date":       apt.Date,
			"time":       apt.Time,
		},
		"confirmationDetails": fmt.Sprintf("Appointment for %s with %s on %s at %s has been cancelled.",
			apt.PatientName, doctorName, apt.Date, apt.Time),
	}, nil
}
