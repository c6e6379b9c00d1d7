package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clinicdesk.org/internal/clinic"
)

func clinicError(err error, what string) error {
	switch pgCode(err) {
	case pgErrUniqueViolation:
		return fmt.Errorf("%w: %s already exists", clinic.ErrConflict, what)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s is referenced by other records", clinic.ErrInUse, what)
	}
	return err
}

func noRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return clinic.ErrNotFound
	}
	return err
}

const patientColumns = `id, first_name, last_name, to_char(date_of_birth, 'YYYY-MM-DD'), gender, phone_number,
	coalesce(email, ''), coalesce(address, ''), coalesce(emergency_contact_name, ''), coalesce(emergency_contact_phone, ''),
	coalesce(blood_type, ''), coalesce(allergies, ''), coalesce(medical_history, ''), created_at, updated_at`

func scanPatient(row scanner) (*clinic.Patient, error) {
	var p clinic.Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender, &p.PhoneNumber,
		&p.Email, &p.Address, &p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.BloodType, &p.Allergies, &p.MedicalHistory, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePatient(ctx context.Context, p *clinic.Patient) error {
	return s.db.QueryRowContext(ctx, `
		insert into patients (first_name, last_name, date_of_birth, gender, phone_number, email, address,
			emergency_contact_name, emergency_contact_phone, blood_type, allergies, medical_history, created_at, updated_at)
		values ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		returning id
	`, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.PhoneNumber, nullIfEmpty(p.Email), nullIfEmpty(p.Address),
		nullIfEmpty(p.EmergencyContactName), nullIfEmpty(p.EmergencyContactPhone), nullIfEmpty(p.BloodType),
		nullIfEmpty(p.Allergies), nullIfEmpty(p.MedicalHistory), p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
}

func (s *Store) GetPatient(ctx context.Context, id int64) (*clinic.Patient, error) {
	p, err := scanPatient(s.db.QueryRowContext(ctx, `select `+patientColumns+` from patients where id = $1`, id))
	return p, noRows(err)
}

func (s *Store) ListPatients(ctx context.Context) ([]clinic.Patient, error) {
	rows, err := s.db.QueryContext(ctx, `select `+patientColumns+` from patients order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []clinic.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePatient(ctx context.Context, p *clinic.Patient) error {
	res, err := s.db.ExecContext(ctx, `
		update patients
		set first_name = $1, last_name = $2, date_of_birth = $3::date, gender = $4, phone_number = $5, email = $6,
			address = $7, emergency_contact_name = $8, emergency_contact_phone = $9, blood_type = $10,
			allergies = $11, medical_history = $12, updated_at = $13
		where id = $14
	`, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.PhoneNumber, nullIfEmpty(p.Email), nullIfEmpty(p.Address),
		nullIfEmpty(p.EmergencyContactName), nullIfEmpty(p.EmergencyContactPhone), nullIfEmpty(p.BloodType),
		nullIfEmpty(p.Allergies), nullIfEmpty(p.MedicalHistory), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	return affected(res, clinic.ErrNotFound)
}

func (s *Store) DeletePatient(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from patients where id = $1`, id)
	if err != nil {
		return clinicError(err, "patient")
	}
	return affected(res, clinic.ErrNotFound)
}

const doctorColumns = `id, user_id, specialization, license_number, phone_number, coalesce(address, ''), is_active, created_at, updated_at`

func scanDoctor(row scanner) (*clinic.Doctor, error) {
	var d clinic.Doctor
	if err := row.Scan(&d.ID, &d.UserID, &d.Specialization, &d.LicenseNumber, &d.PhoneNumber, &d.Address, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func doctorWriteError(err error) error {
	switch pgCode(err) {
	case pgErrUniqueViolation:
		return fmt.Errorf("%w: license number already registered", clinic.ErrConflict)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: user does not exist", clinic.ErrInvalidInput)
	}
	return err
}

func (s *Store) CreateDoctor(ctx context.Context, d *clinic.Doctor) error {
	err := s.db.QueryRowContext(ctx, `
		insert into doctors (user_id, specialization, license_number, phone_number, address, is_active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning id
	`, d.UserID, d.Specialization, d.LicenseNumber, d.PhoneNumber, nullIfEmpty(d.Address), d.IsActive, d.CreatedAt, d.UpdatedAt).Scan(&d.ID)
	if err != nil {
		return doctorWriteError(err)
	}
	return nil
}

func (s *Store) GetDoctor(ctx context.Context, id int64) (*clinic.Doctor, error) {
	d, err := scanDoctor(s.db.QueryRowContext(ctx, `select `+doctorColumns+` from doctors where id = $1`, id))
	return d, noRows(err)
}

func (s *Store) ListDoctors(ctx context.Context) ([]clinic.Doctor, error) {
	rows, err := s.db.QueryContext(ctx, `select `+doctorColumns+` from doctors order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []clinic.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDoctor(ctx context.Context, d *clinic.Doctor) error {
	res, err := s.db.ExecContext(ctx, `
		update doctors
		set user_id = $1, specialization = $2, license_number = $3, phone_number = $4, address = $5, is_active = $6, updated_at = $7
		where id = $8
	`, d.UserID, d.Specialization, d.LicenseNumber, d.PhoneNumber, nullIfEmpty(d.Address), d.IsActive, d.UpdatedAt, d.ID)
	if err != nil {
		return doctorWriteError(err)
	}
	return affected(res, clinic.ErrNotFound)
}

func (s *Store) DeleteDoctor(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from doctors where id = $1`, id)
	if err != nil {
		return clinicError(err, "doctor")
	}
	return affected(res, clinic.ErrNotFound)
}

const appointmentColumns = `id, patient_id, doctor_id, to_char(appointment_date, 'YYYY-MM-DD'), to_char(appointment_time, 'HH24:MI'),
	status, coalesce(reason_for_visit, ''), coalesce(notes, ''), created_by, created_at, updated_at`

func scanAppointment(row scanner) (*clinic.Appointment, error) {
	var a clinic.Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.AppointmentTime,
		&a.Status, &a.ReasonForVisit, &a.Notes, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func refWriteError(err error) error {
	if pgCode(err) == pgErrForeignKeyViolation {
		return fmt.Errorf("%w: referenced record does not exist", clinic.ErrInvalidInput)
	}
	return err
}

func (s *Store) CreateAppointment(ctx context.Context, a *clinic.Appointment) error {
	err := s.db.QueryRowContext(ctx, `
		insert into appointments (patient_id, doctor_id, appointment_date, appointment_time, status, reason_for_visit, notes, created_by, created_at, updated_at)
		values ($1, $2, $3::date, $4::time, $5, $6, $7, $8, $9, $10)
		returning id
	`, a.PatientID, a.DoctorID, a.AppointmentDate, a.AppointmentTime, a.Status, nullIfEmpty(a.ReasonForVisit), nullIfEmpty(a.Notes),
		a.CreatedBy, a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	if err != nil {
		return refWriteError(err)
	}
	return nil
}

func (s *Store) GetAppointment(ctx context.Context, id int64) (*clinic.Appointment, error) {
	a, err := scanAppointment(s.db.QueryRowContext(ctx, `select `+appointmentColumns+` from appointments where id = $1`, id))
	return a, noRows(err)
}

func (s *Store) ListAppointments(ctx context.Context) ([]clinic.Appointment, error) {
	rows, err := s.db.QueryContext(ctx, `select `+appointmentColumns+` from appointments order by appointment_date, appointment_time, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []clinic.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAppointment(ctx context.Context, a *clinic.Appointment) error {
	res, err := s.db.ExecContext(ctx, `
		update appointments
		set patient_id = $1, doctor_id = $2, appointment_date = $3::date, appointment_time = $4::time, status = $5,
			reason_for_visit = $6, notes = $7, updated_at = $8
		where id = $9
	`, a.PatientID, a.DoctorID, a.AppointmentDate, a.AppointmentTime, a.Status, nullIfEmpty(a.ReasonForVisit), nullIfEmpty(a.Notes), a.UpdatedAt, a.ID)
	if err != nil {
		return refWriteError(err)
	}
	return affected(res, clinic.ErrNotFound)
}

func (s *Store) DeleteAppointment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from appointments where id = $1`, id)
	if err != nil {
		return clinicError(err, "appointment")
	}
	return affected(res, clinic.ErrNotFound)
}

const reportColumns = `id, patient_id, doctor_id, appointment_id, to_char(report_date, 'YYYY-MM-DD'), diagnosis,
	coalesce(treatment, ''), coalesce(prescription, ''), coalesce(follow_up_instructions, ''), created_by, created_at, updated_at`

func scanReport(row scanner) (*clinic.Report, error) {
	var (
		r    clinic.Report
		appt sql.NullInt64
	)
	err := row.Scan(&r.ID, &r.PatientID, &r.DoctorID, &appt, &r.ReportDate, &r.Diagnosis,
		&r.Treatment, &r.Prescription, &r.FollowUpInstructions, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.AppointmentID = fromNullInt(appt)
	return &r, nil
}

func (s *Store) CreateReport(ctx context.Context, r *clinic.Report) error {
	err := s.db.QueryRowContext(ctx, `
		insert into medical_reports (patient_id, doctor_id, appointment_id, report_date, diagnosis, treatment, prescription,
			follow_up_instructions, created_by, created_at, updated_at)
		values ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11)
		returning id
	`, r.PatientID, r.DoctorID, nullInt(r.AppointmentID), r.ReportDate, r.Diagnosis, nullIfEmpty(r.Treatment),
		nullIfEmpty(r.Prescription), nullIfEmpty(r.FollowUpInstructions), r.CreatedBy, r.CreatedAt, r.UpdatedAt).Scan(&r.ID)
	if err != nil {
		return refWriteError(err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id int64) (*clinic.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, `select `+reportColumns+` from medical_reports where id = $1`, id))
	return r, noRows(err)
}

func (s *Store) ListReports(ctx context.Context) ([]clinic.Report, error) {
	rows, err := s.db.QueryContext(ctx, `select `+reportColumns+` from medical_reports order by report_date desc, id desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []clinic.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateReport(ctx context.Context, r *clinic.Report) error {
	res, err := s.db.ExecContext(ctx, `
		update medical_reports
		set patient_id = $1, doctor_id = $2, appointment_id = $3, report_date = $4::date, diagnosis = $5, treatment = $6,
			prescription = $7, follow_up_instructions = $8, updated_at = $9
		where id = $10
	`, r.PatientID, r.DoctorID, nullInt(r.AppointmentID), r.ReportDate, r.Diagnosis, nullIfEmpty(r.Treatment),
		nullIfEmpty(r.Prescription), nullIfEmpty(r.FollowUpInstructions), r.UpdatedAt, r.ID)
	if err != nil {
		return refWriteError(err)
	}
	return affected(res, clinic.ErrNotFound)
}

func (s *Store) DeleteReport(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from medical_reports where id = $1`, id)
	if err != nil {
		return err
	}
	return affected(res, clinic.ErrNotFound)
}
