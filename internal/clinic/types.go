// Package clinic holds the patient, doctor, appointment and medical report
// records the clinic staff maintain.
package clinic

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("clinic: not found")
	ErrConflict     = errors.New("clinic: conflict")
	ErrInvalidInput = errors.New("clinic: invalid input")
	// ErrInUse means the record is still referenced by other records.
	ErrInUse = errors.New("clinic: record in use")
)

// Gender values accepted for patients.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

// Patient is a person receiving care. Dates are YYYY-MM-DD.
type Patient struct {
	ID                    int64     `json:"id"`
	FirstName             string    `json:"first_name" validate:"required"`
	LastName              string    `json:"last_name" validate:"required"`
	DateOfBirth           string    `json:"date_of_birth" validate:"required,date"`
	Gender                string    `json:"gender" validate:"required,oneof=male female other"`
	PhoneNumber           string    `json:"phone_number" validate:"required"`
	Email                 string    `json:"email,omitempty" validate:"omitempty,email"`
	Address               string    `json:"address,omitempty"`
	EmergencyContactName  string    `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string    `json:"emergency_contact_phone,omitempty"`
	BloodType             string    `json:"blood_type,omitempty"`
	Allergies             string    `json:"allergies,omitempty"`
	MedicalHistory        string    `json:"medical_history,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Doctor is the clinical profile attached to a user account.
type Doctor struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id" validate:"gt=0"`
	Specialization string    `json:"specialization" validate:"required"`
	LicenseNumber  string    `json:"license_number" validate:"required"`
	PhoneNumber    string    `json:"phone_number" validate:"required"`
	Address        string    `json:"address,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Appointment books a patient with a doctor. Time is HH:MM.
type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       int64     `json:"patient_id" validate:"gt=0"`
	DoctorID        int64     `json:"doctor_id" validate:"gt=0"`
	AppointmentDate string    `json:"appointment_date" validate:"required,date"`
	AppointmentTime string    `json:"appointment_time" validate:"required,clock"`
	Status          string    `json:"status" validate:"required,oneof=scheduled completed cancelled no-show"`
	ReasonForVisit  string    `json:"reason_for_visit,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Report is a medical report written after a consultation.
type Report struct {
	ID                   int64     `json:"id"`
	PatientID            int64     `json:"patient_id" validate:"gt=0"`
	DoctorID             int64     `json:"doctor_id" validate:"gt=0"`
	AppointmentID        *int64    `json:"appointment_id"`
	ReportDate           string    `json:"report_date" validate:"required,date"`
	Diagnosis            string    `json:"diagnosis" validate:"required"`
	Treatment            string    `json:"treatment,omitempty"`
	Prescription         string    `json:"prescription,omitempty"`
	FollowUpInstructions string    `json:"follow_up_instructions,omitempty"`
	CreatedBy            int64     `json:"created_by"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Store persists clinic records. Implementations return ErrNotFound for
// missing rows, ErrConflict for unique violations and ErrInUse when a delete
// would orphan referencing rows.
type Store interface {
	CreatePatient(ctx context.Context, p *Patient) error
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	UpdatePatient(ctx context.Context, p *Patient) error
	DeletePatient(ctx context.Context, id int64) error

	CreateDoctor(ctx context.Context, d *Doctor) error
	GetDoctor(ctx context.Context, id int64) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	UpdateDoctor(ctx context.Context, d *Doctor) error
	DeleteDoctor(ctx context.Context, id int64) error

	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	UpdateAppointment(ctx context.Context, a *Appointment) error
	DeleteAppointment(ctx context.Context, id int64) error

	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id int64) (*Report, error)
	ListReports(ctx context.Context) ([]Report, error)
	UpdateReport(ctx context.Context, r *Report) error
	DeleteReport(ctx context.Context, id int64) error
}

// UserChecker reports whether a user account exists.
type UserChecker interface {
	UserExists(ctx context.Context, id int64) (bool, error)
}
