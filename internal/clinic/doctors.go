package clinic

import (
	"context"
	"fmt"
)

// DoctorInput is the writable part of a doctor profile.
type DoctorInput struct {
	UserID         int64
	Specialization string
	LicenseNumber  string
	PhoneNumber    string
	Address        string
	IsActive       *bool
}

func (in DoctorInput) apply(d *Doctor) {
	d.UserID = keepID(d.UserID, in.UserID)
	d.Specialization = keep(d.Specialization, in.Specialization)
	d.LicenseNumber = keep(d.LicenseNumber, in.LicenseNumber)
	d.PhoneNumber = keep(d.PhoneNumber, in.PhoneNumber)
	d.Address = keep(d.Address, in.Address)
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
}

func (s *Service) validateDoctor(ctx context.Context, d *Doctor) error {
	if err := s.check(d); err != nil {
		return err
	}
	ok, err := s.users.UserExists(ctx, d.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %d does not exist", ErrInvalidInput, d.UserID)
	}
	return nil
}

// CreateDoctor creates a doctor profile for an existing user.
func (s *Service) CreateDoctor(ctx context.Context, in DoctorInput) (*Doctor, error) {
	d := &Doctor{IsActive: true}
	in.apply(d)
	if err := s.validateDoctor(ctx, d); err != nil {
		return nil, err
	}
	d.CreatedAt = s.stamp()
	d.UpdatedAt = d.CreatedAt
	if err := s.store.CreateDoctor(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// GetDoctor returns a doctor by id.
func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.store.GetDoctor(ctx, id)
}

// ListDoctors returns every doctor.
func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.store.ListDoctors(ctx)
}

// UpdateDoctor merges in into the stored doctor.
func (s *Service) UpdateDoctor(ctx context.Context, id int64, in DoctorInput) (*Doctor, error) {
	d, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(d)
	if err := s.validateDoctor(ctx, d); err != nil {
		return nil, err
	}
	d.UpdatedAt = s.stamp()
	if err := s.store.UpdateDoctor(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDoctor removes a doctor that nothing references.
func (s *Service) DeleteDoctor(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.store.DeleteDoctor(ctx, id)
}
