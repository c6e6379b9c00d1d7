package memory

import (
	"context"
	"fmt"
	"strings"

	"clinicdesk.org/internal/clinic"
)

func (s *InMemory) CreatePatient(_ context.Context, p *clinic.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.next("patients")
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (s *InMemory) GetPatient(_ context.Context, id int64) (*clinic.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, clinic.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) ListPatients(context.Context) ([]clinic.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.patients), nil
}

func (s *InMemory) UpdatePatient(_ context.Context, p *clinic.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[p.ID]; !ok {
		return clinic.ErrNotFound
	}
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (s *InMemory) DeletePatient(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return clinic.ErrNotFound
	}
	for _, a := range s.appointments {
		if a.PatientID == id {
			return fmt.Errorf("%w: patient has appointments", clinic.ErrInUse)
		}
	}
	for _, r := range s.reports {
		if r.PatientID == id {
			return fmt.Errorf("%w: patient has reports", clinic.ErrInUse)
		}
	}
	delete(s.patients, id)
	return nil
}

func (s *InMemory) licenseTaken(d *clinic.Doctor) bool {
	for id, other := range s.doctors {
		if id != d.ID && strings.EqualFold(other.LicenseNumber, d.LicenseNumber) {
			return true
		}
	}
	return false
}

func (s *InMemory) CreateDoctor(_ context.Context, d *clinic.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[d.UserID]; !ok {
		return fmt.Errorf("%w: user %d does not exist", clinic.ErrInvalidInput, d.UserID)
	}
	d.ID = 0
	if s.licenseTaken(d) {
		return fmt.Errorf("%w: license number already registered", clinic.ErrConflict)
	}
	d.ID = s.next("doctors")
	cp := *d
	s.doctors[d.ID] = &cp
	return nil
}

func (s *InMemory) GetDoctor(_ context.Context, id int64) (*clinic.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, clinic.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *InMemory) ListDoctors(context.Context) ([]clinic.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.doctors), nil
}

func (s *InMemory) UpdateDoctor(_ context.Context, d *clinic.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[d.ID]; !ok {
		return clinic.ErrNotFound
	}
	if s.licenseTaken(d) {
		return fmt.Errorf("%w: license number already registered", clinic.ErrConflict)
	}
	cp := *d
	s.doctors[d.ID] = &cp
	return nil
}

func (s *InMemory) DeleteDoctor(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[id]; !ok {
		return clinic.ErrNotFound
	}
	for _, a := range s.appointments {
		if a.DoctorID == id {
			return fmt.Errorf("%w: doctor has appointments", clinic.ErrInUse)
		}
	}
	for _, r := range s.reports {
		if r.DoctorID == id {
			return fmt.Errorf("%w: doctor has reports", clinic.ErrInUse)
		}
	}
	delete(s.doctors, id)
	return nil
}

func (s *InMemory) CreateAppointment(_ context.Context, a *clinic.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.next("appointments")
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (s *InMemory) GetAppointment(_ context.Context, id int64) (*clinic.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, clinic.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *InMemory) ListAppointments(context.Context) ([]clinic.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.appointments), nil
}

func (s *InMemory) UpdateAppointment(_ context.Context, a *clinic.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[a.ID]; !ok {
		return clinic.ErrNotFound
	}
	cp := *a
	s.appointments[a.ID] = &cp
	return nil
}

func (s *InMemory) DeleteAppointment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return clinic.ErrNotFound
	}
	for _, r := range s.reports {
		if r.AppointmentID != nil && *r.AppointmentID == id {
			return fmt.Errorf("%w: appointment has reports", clinic.ErrInUse)
		}
	}
	delete(s.appointments, id)
	return nil
}

func copyReport(r *clinic.Report) clinic.Report {
	cp := *r
	if r.AppointmentID != nil {
		id := *r.AppointmentID
		cp.AppointmentID = &id
	}
	return cp
}

func (s *InMemory) CreateReport(_ context.Context, r *clinic.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.next("reports")
	cp := copyReport(r)
	s.reports[r.ID] = &cp
	return nil
}

func (s *InMemory) GetReport(_ context.Context, id int64) (*clinic.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, clinic.ErrNotFound
	}
	cp := copyReport(r)
	return &cp, nil
}

func (s *InMemory) ListReports(context.Context) ([]clinic.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := sortedValues(s.reports)
	for i := range out {
		out[i] = copyReport(&out[i])
	}
	return out, nil
}

func (s *InMemory) UpdateReport(_ context.Context, r *clinic.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[r.ID]; !ok {
		return clinic.ErrNotFound
	}
	cp := copyReport(r)
	s.reports[r.ID] = &cp
	return nil
}

func (s *InMemory) DeleteReport(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return clinic.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}
