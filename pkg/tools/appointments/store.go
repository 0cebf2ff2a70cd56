// Package appointments holds the in-memory scheduling domain: doctors,
// their availability calendars, and booked appointments, plus the tool
// executors the model uses to work with them.
package appointments

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Doctor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type AvailabilitySlot struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

type Appointment struct {
	ID          string `json:"id"`
	DoctorID    string `json:"doctorId"`
	PatientName string `json:"patientName"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Reason      string `json:"reason"`
}

// DoctorAvailability is one doctor's open slots, optionally filtered to
// a date range.
type DoctorAvailability struct {
	Doctor       Doctor
	Availability []AvailabilitySlot
}

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrSlotUnavailable     = errors.New("selected time slot is not available")
	ErrSlotTaken           = errors.New("there is already an appointment at this time")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

type doctorRecord struct {
	Doctor
	availability []AvailabilitySlot
}

// Store is a mutex-guarded in-memory scheduling book. Construct one per
// process and inject it into the tool executors.
type Store struct {
	mu           sync.Mutex
	doctors      []*doctorRecord
	appointments []Appointment
	nextID       int
}

// NewStore seeds the demo clinic: three doctors with availability and
// three booked appointments.
func NewStore() *Store {
	return &Store{
		doctors: []*doctorRecord{
			{
				Doctor: Doctor{ID: "doc1", Name: "Dr. Sarah Chen", Specialty: "Family Medicine"},
				availability: []AvailabilitySlot{
					{Date: "2025-05-16", Times: []string{"09:00", "10:00", "14:00", "15:00"}},
					{Date: "2025-05-17", Times: []string{"09:00", "10:00", "11:00"}},
					{Date: "2025-05-20", Times: []string{"13:00", "14:00", "15:00", "16:00"}},
				},
			},
			{
				Doctor: Doctor{ID: "doc2", Name: "Dr. Michael Rodriguez", Specialty: "Cardiology"},
				availability: []AvailabilitySlot{
					{Date: "2025-05-15", Times: []string{"11:00", "13:00", "16:00"}},
					{Date: "2025-05-18", Times: []string{"09:00", "10:00", "11:00", "13:00"}},
					{Date: "2025-05-19", Times: []string{"14:00", "15:00"}},
				},
			},
			{
				Doctor: Doctor{ID: "doc3", Name: "Dr. Emily Johnson", Specialty: "Pediatrics"},
				availability: []AvailabilitySlot{
					{Date: "2025-05-15", Times: []string{"09:00", "10:00", "15:00", "16:00"}},
					{Date: "2025-05-16", Times: []string{"11:00", "13:00", "14:00"}},
					{Date: "2025-05-19", Times: []string{"09:00", "10:00", "11:00"}},
				},
			},
		},
		appointments: []Appointment{
			{ID: "apt1", DoctorID: "doc1", PatientName: "John Smith", Date: "2025-05-16", Time: "11:00", Reason: "Annual checkup"},
			{ID: "apt2", DoctorID: "doc2", PatientName: "Emma Wilson", Date: "2025-05-15", Time: "14:00", Reason: "Blood pressure follow-up"},
			{ID: "apt3", DoctorID: "doc3", PatientName: "Aiden Martinez", Date: "2025-05-15", Time: "11:00", Reason: "Vaccination"},
		},
		nextID: 4,
	}
}

func (s *Store) findDoctor(id string) *doctorRecord {
	for _, d := range s.doctors {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// Doctors lists every doctor without availability detail.
func (s *Store) Doctors() []Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		out = append(out, d.Doctor)
	}
	return out
}

func (s *Store) DoctorByID(id string) (Doctor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.findDoctor(id); d != nil {
		return d.Doctor, true
	}
	return Doctor{}, false
}

// DoctorsBySpecialty matches the specialty exactly, ignoring case.
func (s *Store) DoctorsBySpecialty(specialty string) []Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Doctor
	for _, d := range s.doctors {
		if strings.EqualFold(d.Specialty, specialty) {
			out = append(out, d.Doctor)
		}
	}
	return out
}

// Availability returns a doctor's open slots. When both bounds are set,
// slots outside [startDate, endDate] are filtered out; dates compare
// lexically as YYYY-MM-DD.
func (s *Store) Availability(doctorID, startDate, endDate string) (DoctorAvailability, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDoctor(doctorID)
	if d == nil {
		return DoctorAvailability{}, false
	}
	out := DoctorAvailability{Doctor: d.Doctor}
	for _, slot := range d.availability {
		if startDate != "" && endDate != "" && (slot.Date < startDate || slot.Date > endDate) {
			continue
		}
		cp := AvailabilitySlot{Date: slot.Date, Times: append([]string(nil), slot.Times...)}
		out.Availability = append(out.Availability, cp)
	}
	return out, true
}

func (s *Store) DoctorAppointments(doctorID string) []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Appointment
	for _, apt := range s.appointments {
		if apt.DoctorID == doctorID {
			out = append(out, apt)
		}
	}
	return out
}

// PatientAppointments matches by case-insensitive substring; an empty
// name matches everything.
func (s *Store) PatientAppointments(patientName string) []Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(patientName)
	var out []Appointment
	for _, apt := range s.appointments {
		if strings.Contains(strings.ToLower(apt.PatientName), needle) {
			out = append(out, apt)
		}
	}
	return out
}

func (s *Store) AppointmentByID(id string) (Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, apt := range s.appointments {
		if apt.ID == id {
			return apt, true
		}
	}
	return Appointment{}, false
}

// Create books an appointment: the slot must exist in the doctor's
// availability and not conflict with an existing booking. The booked
// time is removed from availability; a date with no remaining times is
// dropped entirely.
func (s *Store) Create(doctorID, patientName, date, timeOfDay, reason string) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.findDoctor(doctorID)
	if d == nil {
		return Appointment{}, ErrDoctorNotFound
	}

	slotIdx := -1
	timeIdx := -1
	for i, slot := range d.availability {
		if slot.Date != date {
			continue
		}
		slotIdx = i
		for j, tm := range slot.Times {
			if tm == timeOfDay {
				timeIdx = j
				break
			}
		}
		break
	}
	if slotIdx == -1 || timeIdx == -1 {
		return Appointment{}, ErrSlotUnavailable
	}

	for _, apt := range s.appointments {
		if apt.DoctorID == doctorID && apt.Date == date && apt.Time == timeOfDay {
			return Appointment{}, ErrSlotTaken
		}
	}

	apt := Appointment{
		ID:          fmt.Sprintf("apt%d", s.nextID),
		DoctorID:    doctorID,
		PatientName: patientName,
		Date:        date,
		Time:        timeOfDay,
		Reason:      reason,
	}
	s.nextID++
	s.appointments = append(s.appointments, apt)

	slot := &d.availability[slotIdx]
	slot.Times = append(slot.Times[:timeIdx], slot.Times[timeIdx+1:]...)
	if len(slot.Times) == 0 {
		d.availability = append(d.availability[:slotIdx], d.availability[slotIdx+1:]...)
	}
	return apt, nil
}

// Cancel removes a booking and gives its slot back to the doctor's
// availability, keeping times and dates sorted.
func (s *Store) Cancel(appointmentID string) (Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, apt := range s.appointments {
		if apt.ID == appointmentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Appointment{}, ErrAppointmentNotFound
	}
	apt := s.appointments[idx]
	s.appointments = append(s.appointments[:idx], s.appointments[idx+1:]...)

	if d := s.findDoctor(apt.DoctorID); d != nil {
		restored := false
		for i := range d.availability {
			if d.availability[i].Date == apt.Date {
				d.availability[i].Times = append(d.availability[i].Times, apt.Time)
				sort.Strings(d.availability[i].Times)
				restored = true
				break
			}
		}
		if !restored {
			d.availability = append(d.availability, AvailabilitySlot{Date: apt.Date, Times: []string{apt.Time}})
			sort.Slice(d.availability, func(i, j int) bool {
				return d.availability[i].Date < d.availability[j].Date
			})
		}
	}
	return apt, nil
}
