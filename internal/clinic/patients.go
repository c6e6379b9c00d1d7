package clinic

import (
	"context"
	"strings"
)

// PatientInput is the writable part of a patient. On update empty fields keep
// the stored value.
type PatientInput struct {
	FirstName             string
	LastName              string
	DateOfBirth           string
	Gender                string
	PhoneNumber           string
	Email                 string
	Address               string
	EmergencyContactName  string
	EmergencyContactPhone string
	BloodType             string
	Allergies             string
	MedicalHistory        string
}

func (in PatientInput) apply(p *Patient) {
	p.FirstName = keep(p.FirstName, in.FirstName)
	p.LastName = keep(p.LastName, in.LastName)
	p.DateOfBirth = keep(p.DateOfBirth, in.DateOfBirth)
	p.Gender = keep(p.Gender, strings.ToLower(in.Gender))
	p.PhoneNumber = keep(p.PhoneNumber, in.PhoneNumber)
	p.Email = keep(p.Email, strings.ToLower(in.Email))
	p.Address = keep(p.Address, in.Address)
	p.EmergencyContactName = keep(p.EmergencyContactName, in.EmergencyContactName)
	p.EmergencyContactPhone = keep(p.EmergencyContactPhone, in.EmergencyContactPhone)
	p.BloodType = keep(p.BloodType, in.BloodType)
	p.Allergies = keep(p.Allergies, in.Allergies)
	p.MedicalHistory = keep(p.MedicalHistory, in.MedicalHistory)
}

// CreatePatient registers a new patient.
func (s *Service) CreatePatient(ctx context.Context, in PatientInput) (*Patient, error) {
	p := &Patient{}
	in.apply(p)
	if err := s.check(p); err != nil {
		return nil, err
	}
	p.CreatedAt = s.stamp()
	p.UpdatedAt = p.CreatedAt
	if err := s.store.CreatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPatient returns a patient by id.
func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.store.GetPatient(ctx, id)
}

// ListPatients returns every patient.
func (s *Service) ListPatients(ctx context.Context) ([]Patient, error) {
	return s.store.ListPatients(ctx)
}

// UpdatePatient merges in into the stored patient.
func (s *Service) UpdatePatient(ctx context.Context, id int64, in PatientInput) (*Patient, error) {
	p, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.check(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.stamp()
	if err := s.store.UpdatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePatient removes a patient that nothing references.
func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.store.DeletePatient(ctx, id)
}
