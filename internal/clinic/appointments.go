package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// AppointmentInput is the writable part of an appointment.
type AppointmentInput struct {
	PatientID       int64
	DoctorID        int64
	AppointmentDate string
	AppointmentTime string
	Status          string
	ReasonForVisit  string
	Notes           string
}

func (in AppointmentInput) apply(a *Appointment) {
	a.PatientID = keepID(a.PatientID, in.PatientID)
	a.DoctorID = keepID(a.DoctorID, in.DoctorID)
	a.AppointmentDate = keep(a.AppointmentDate, in.AppointmentDate)
	a.AppointmentTime = keep(a.AppointmentTime, in.AppointmentTime)
	a.Status = keep(a.Status, strings.ToLower(in.Status))
	a.ReasonForVisit = keep(a.ReasonForVisit, in.ReasonForVisit)
	a.Notes = keep(a.Notes, in.Notes)
}

func (s *Service) validateAppointment(ctx context.Context, a *Appointment) error {
	if err := s.check(a); err != nil {
		return err
	}
	return s.checkRefs(ctx, a.PatientID, a.DoctorID, nil)
}

// checkRefs verifies that referenced records exist.
func (s *Service) checkRefs(ctx context.Context, patientID, doctorID int64, appointmentID *int64) error {
	if _, err := s.store.GetPatient(ctx, patientID); err != nil {
		return refError("patient", patientID, err)
	}
	if _, err := s.store.GetDoctor(ctx, doctorID); err != nil {
		return refError("doctor", doctorID, err)
	}
	if appointmentID != nil {
		if _, err := s.store.GetAppointment(ctx, *appointmentID); err != nil {
			return refError("appointment", *appointmentID, err)
		}
	}
	return nil
}

func refError(kind string, id int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s %d does not exist", ErrInvalidInput, kind, id)
	}
	return err
}

// CreateAppointment books an appointment on behalf of the caller.
func (s *Service) CreateAppointment(ctx context.Context, in AppointmentInput) (*Appointment, error) {
	creator, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	a := &Appointment{Status: StatusScheduled, CreatedBy: creator}
	in.apply(a)
	if err := s.validateAppointment(ctx, a); err != nil {
		return nil, err
	}
	a.CreatedAt = s.stamp()
	a.UpdatedAt = a.CreatedAt
	if err := s.store.CreateAppointment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAppointment returns an appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.store.GetAppointment(ctx, id)
}

// ListAppointments returns every appointment.
func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.store.ListAppointments(ctx)
}

// UpdateAppointment merges in into the stored appointment.
func (s *Service) UpdateAppointment(ctx context.Context, id int64, in AppointmentInput) (*Appointment, error) {
	a, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(a)
	if err := s.validateAppointment(ctx, a); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.stamp()
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAppointment removes an appointment that no report references.
func (s *Service) DeleteAppointment(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.store.DeleteAppointment(ctx, id)
}
