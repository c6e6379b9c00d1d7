package httpapi

import (
	"context"
	"errors"
	"net/http"

	"clinicdesk.org/internal/clinic"
)

type patientRequest struct {
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	DateOfBirth           string `json:"date_of_birth"`
	Gender                string `json:"gender"`
	PhoneNumber           string `json:"phone_number"`
	Email                 string `json:"email"`
	Address               string `json:"address"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
	BloodType             string `json:"blood_type"`
	Allergies             string `json:"allergies"`
	MedicalHistory        string `json:"medical_history"`
}

type doctorRequest struct {
	UserID         int64  `json:"user_id"`
	Specialization string `json:"specialization"`
	LicenseNumber  string `json:"license_number"`
	PhoneNumber    string `json:"phone_number"`
	Address        string `json:"address"`
	IsActive       *bool  `json:"is_active"`
}

type appointmentRequest struct {
	PatientID       int64  `json:"patient_id"`
	DoctorID        int64  `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Status          string `json:"status"`
	ReasonForVisit  string `json:"reason_for_visit"`
	Notes           string `json:"notes"`
}

type reportRequest struct {
	PatientID            int64  `json:"patient_id"`
	DoctorID             int64  `json:"doctor_id"`
	AppointmentID        *int64 `json:"appointment_id"`
	ReportDate           string `json:"report_date"`
	Diagnosis            string `json:"diagnosis"`
	Treatment            string `json:"treatment"`
	Prescription         string `json:"prescription"`
	FollowUpInstructions string `json:"follow_up_instructions"`
}

// --- patients ---

func (a *API) listPatients(w http.ResponseWriter, r *http.Request) {
	out, err := a.clinic.ListPatients(r.Context())
	if err != nil {
		a.handleClinicError(w, r, "Patient", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": out})
}

func (a *API) getPatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.clinic.GetPatient(r.Context(), id)
	if err != nil {
		a.handleClinicError(w, r, "Patient", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patient": p})
}

func (a *API) createPatient(w http.ResponseWriter, r *http.Request) {
	var req patientRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.clinic.CreatePatient(r.Context(), clinic.PatientInput(req))
	if err != nil {
		a.handleClinicError(w, r, "Patient", err)
		return
	}
	writeMessage(w, http.StatusCreated, "Patient created successfully", map[string]any{"patient": p})
}

func (a *API) updatePatient(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req patientRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := a.clinic.UpdatePatient(r.Context(), id, clinic.PatientInput(req))
	if err != nil {
		a.handleClinicError(w, r, "Patient", err)
		return
	}
	writeMessage(w, http.StatusOK, "Patient updated successfully", map[string]any{"patient": p})
}

func (a *API) deletePatient(w http.ResponseWriter, r *http.Request) {
	a.deleteRecord(w, r, "Patient", a.clinic.DeletePatient)
}

// --- doctors ---

func (a *API) listDoctors(w http.ResponseWriter, r *http.Request) {
	out, err := a.clinic.ListDoctors(r.Context())
	if err != nil {
		a.handleClinicError(w, r, "Doctor", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": out})
}

func (a *API) getDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d, err := a.clinic.GetDoctor(r.Context(), id)
	if err != nil {
		a.handleClinicError(w, r, "Doctor", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctor": d})
}

func (a *API) createDoctor(w http.ResponseWriter, r *http.Request) {
	var req doctorRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d, err := a.clinic.CreateDoctor(r.Context(), clinic.DoctorInput(req))
	if err != nil {
		a.handleClinicError(w, r, "Doctor", err)
		return
	}
	writeMessage(w, http.StatusCreated, "Doctor created successfully", map[string]any{"doctor": d})
}

func (a *API) updateDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req doctorRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d, err := a.clinic.UpdateDoctor(r.Context(), id, clinic.DoctorInput(req))
	if err != nil {
		a.handleClinicError(w, r, "Doctor", err)
		return
	}
	writeMessage(w, http.StatusOK, "Doctor updated successfully", map[string]any{"doctor": d})
}

func (a *API) deleteDoctor(w http.ResponseWriter, r *http.Request) {
	a.deleteRecord(w, r, "Doctor", a.clinic.DeleteDoctor)
}

// --- appointments ---

func (a *API) listAppointments(w http.ResponseWriter, r *http.Request) {
	out, err := a.clinic.ListAppointments(r.Context())
	if err != nil {
		a.handleClinicError(w, r, "Appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

func (a *API) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ap, err := a.clinic.GetAppointment(r.Context(), id)
	if err != nil {
		a.handleClinicError(w, r, "Appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": ap})
}

func (a *API) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ap, err := a.clinic.CreateAppointment(r.Context(), clinic.AppointmentInput(req))
	if err != nil {
		a.handleClinicError(w, r, "Appointment", err)
		return
	}
	writeMessage(w, http.StatusCreated, "Appointment created successfully", map[string]any{"appointment": ap})
}

func (a *API) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req appointmentRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ap, err := a.clinic.UpdateAppointment(r.Context(), id, clinic.AppointmentInput(req))
	if err != nil {
		a.handleClinicError(w, r, "Appointment", err)
		return
	}
	writeMessage(w, http.StatusOK, "Appointment updated successfully", map[string]any{"appointment": ap})
}

func (a *API) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	a.deleteRecord(w, r, "Appointment", a.clinic.DeleteAppointment)
}

// --- medical reports ---

func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	out, err := a.clinic.ListReports(r.Context())
	if err != nil {
		a.handleClinicError(w, r, "Medical report", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"medical_reports": out})
}

func (a *API) getReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := a.clinic.GetReport(r.Context(), id)
	if err != nil {
		a.handleClinicError(w, r, "Medical report", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"medical_report": rep})
}

func (a *API) createReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := a.clinic.CreateReport(r.Context(), clinic.ReportInput(req))
	if err != nil {
		a.handleClinicError(w, r, "Medical report", err)
		return
	}
	writeMessage(w, http.StatusCreated, "Medical report created successfully", map[string]any{"medical_report": rep})
}

func (a *API) updateReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req reportRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := a.clinic.UpdateReport(r.Context(), id, clinic.ReportInput(req))
	if err != nil {
		a.handleClinicError(w, r, "Medical report", err)
		return
	}
	writeMessage(w, http.StatusOK, "Medical report updated successfully", map[string]any{"medical_report": rep})
}

func (a *API) deleteReport(w http.ResponseWriter, r *http.Request) {
	a.deleteRecord(w, r, "Medical report", a.clinic.DeleteReport)
}

// --- helpers ---

func (a *API) deleteRecord(w http.ResponseWriter, r *http.Request, kind string, del func(ctx context.Context, id int64) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := del(r.Context(), id); err != nil {
		a.handleClinicError(w, r, kind, err)
		return
	}
	writeMessage(w, http.StatusOK, kind+" deleted successfully", nil)
}

func (a *API) handleClinicError(w http.ResponseWriter, r *http.Request, kind string, err error) {
	switch {
	case errors.Is(err, clinic.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, clinic.ErrNotFound):
		writeError(w, r, http.StatusNotFound, kind+" not found")
	case errors.Is(err, clinic.ErrConflict), errors.Is(err, clinic.ErrInUse):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		a.internalError(w, r, err)
	}
}
