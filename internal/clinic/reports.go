package clinic

import "context"

// ReportInput is the writable part of a medical report.
type ReportInput struct {
	PatientID            int64
	DoctorID             int64
	AppointmentID        *int64
	ReportDate           string
	Diagnosis            string
	Treatment            string
	Prescription         string
	FollowUpInstructions string
}

func (in ReportInput) apply(r *Report) {
	r.PatientID = keepID(r.PatientID, in.PatientID)
	r.DoctorID = keepID(r.DoctorID, in.DoctorID)
	if in.AppointmentID != nil && *in.AppointmentID > 0 {
		id := *in.AppointmentID
		r.AppointmentID = &id
	}
	r.ReportDate = keep(r.ReportDate, in.ReportDate)
	r.Diagnosis = keep(r.Diagnosis, in.Diagnosis)
	r.Treatment = keep(r.Treatment, in.Treatment)
	r.Prescription = keep(r.Prescription, in.Prescription)
	r.FollowUpInstructions = keep(r.FollowUpInstructions, in.FollowUpInstructions)
}

func (s *Service) validateReport(ctx context.Context, r *Report) error {
	if err := s.check(r); err != nil {
		return err
	}
	return s.checkRefs(ctx, r.PatientID, r.DoctorID, r.AppointmentID)
}

// CreateReport files a report on behalf of the caller.
func (s *Service) CreateReport(ctx context.Context, in ReportInput) (*Report, error) {
	creator, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	r := &Report{CreatedBy: creator}
	in.apply(r)
	if err := s.validateReport(ctx, r); err != nil {
		return nil, err
	}
	r.CreatedAt = s.stamp()
	r.UpdatedAt = r.CreatedAt
	if err := s.store.CreateReport(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetReport returns a report by id.
func (s *Service) GetReport(ctx context.Context, id int64) (*Report, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	return s.store.GetReport(ctx, id)
}

// ListReports returns every report.
func (s *Service) ListReports(ctx context.Context) ([]Report, error) {
	return s.store.ListReports(ctx)
}

// UpdateReport merges in into the stored report.
func (s *Service) UpdateReport(ctx context.Context, id int64, in ReportInput) (*Report, error) {
	r, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(r)
	if err := s.validateReport(ctx, r); err != nil {
		return nil, err
	}
	r.UpdatedAt = s.stamp()
	if err := s.store.UpdateReport(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteReport removes a report.
func (s *Service) DeleteReport(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.store.DeleteReport(ctx, id)
}
