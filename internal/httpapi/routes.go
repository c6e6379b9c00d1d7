package httpapi

import (
	"fmt"
	"net/http"

	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/obs"
)

var (
	public        = routePolicy{public: true}
	authenticated = routePolicy{}
	adminOnly     = routePolicy{roles: []auth.Role{auth.RoleAdministrator}}
	frontDesk     = routePolicy{roles: []auth.Role{auth.RoleFrontDesk}}
	clinician     = routePolicy{roles: []auth.Role{auth.RoleClinician}}
)

// routePolicies maps "METHOD pattern" to the roles allowed to call it.
// Administrators pass every role check.
var routePolicies = map[string]routePolicy{
	"GET /":        public,
	"GET /healthz": public,
	"GET /readyz":  public,
	"GET /metrics": public,

	"POST /api/auth/register":     public,
	"POST /api/auth/login":        public,
	"GET /api/auth/me":            authenticated,
	"GET /api/auth/users":         adminOnly,
	"GET /api/auth/users/{id}":    adminOnly,
	"PUT /api/auth/users/{id}":    adminOnly,
	"DELETE /api/auth/users/{id}": adminOnly,

	"GET /api/patients":         authenticated,
	"GET /api/patients/{id}":    authenticated,
	"POST /api/patients":        frontDesk,
	"PUT /api/patients/{id}":    frontDesk,
	"DELETE /api/patients/{id}": adminOnly,

	"GET /api/doctors":         authenticated,
	"GET /api/doctors/{id}":    authenticated,
	"POST /api/doctors":        adminOnly,
	"PUT /api/doctors/{id}":    adminOnly,
	"DELETE /api/doctors/{id}": adminOnly,

	"GET /api/appointments":         authenticated,
	"GET /api/appointments/{id}":    authenticated,
	"POST /api/appointments":        authenticated,
	"PUT /api/appointments/{id}":    authenticated,
	"DELETE /api/appointments/{id}": frontDesk,

	"GET /api/medical-reports":         authenticated,
	"GET /api/medical-reports/{id}":    authenticated,
	"POST /api/medical-reports":        clinician,
	"PUT /api/medical-reports/{id}":    clinician,
	"DELETE /api/medical-reports/{id}": clinician,

	"POST /api/files/upload":                        authenticated,
	"GET /api/files":                                authenticated,
	"GET /api/files/{id}":                           authenticated,
	"GET /api/files/entity/{entityType}/{entityId}": authenticated,
	"GET /api/files/download/{id}":                  authenticated,
	"DELETE /api/files/{id}":                        authenticated,

	"GET /api/activity-logs": adminOnly,
}

func (a *API) routes() {
	a.handle(http.MethodGet, "/", a.Welcome)
	a.handle(http.MethodGet, "/healthz", a.Healthz)
	a.handle(http.MethodGet, "/readyz", a.Ready)
	a.handle(http.MethodGet, "/metrics", obs.Handler().ServeHTTP)

	a.handle(http.MethodPost, "/api/auth/register", a.register)
	a.handle(http.MethodPost, "/api/auth/login", a.login, a.loginLimit)
	a.handle(http.MethodGet, "/api/auth/me", a.me)
	a.handle(http.MethodGet, "/api/auth/users", a.listUsers)
	a.handle(http.MethodGet, "/api/auth/users/{id}", a.getUser)
	a.handle(http.MethodPut, "/api/auth/users/{id}", a.updateUser)
	a.handle(http.MethodDelete, "/api/auth/users/{id}", a.deleteUser)

	a.handle(http.MethodGet, "/api/patients", a.listPatients)
	a.handle(http.MethodGet, "/api/patients/{id}", a.getPatient)
	a.handle(http.MethodPost, "/api/patients", a.createPatient)
	a.handle(http.MethodPut, "/api/patients/{id}", a.updatePatient)
	a.handle(http.MethodDelete, "/api/patients/{id}", a.deletePatient)

	a.handle(http.MethodGet, "/api/doctors", a.listDoctors)
	a.handle(http.MethodGet, "/api/doctors/{id}", a.getDoctor)
	a.handle(http.MethodPost, "/api/doctors", a.createDoctor)
	a.handle(http.MethodPut, "/api/doctors/{id}", a.updateDoctor)
	a.handle(http.MethodDelete, "/api/doctors/{id}", a.deleteDoctor)

	a.handle(http.MethodGet, "/api/appointments", a.listAppointments)
	a.handle(http.MethodGet, "/api/appointments/{id}", a.getAppointment)
	a.handle(http.MethodPost, "/api/appointments", a.createAppointment)
	a.handle(http.MethodPut, "/api/appointments/{id}", a.updateAppointment)
	a.handle(http.MethodDelete, "/api/appointments/{id}", a.deleteAppointment)

	a.handle(http.MethodGet, "/api/medical-reports", a.listReports)
	a.handle(http.MethodGet, "/api/medical-reports/{id}", a.getReport)
	a.handle(http.MethodPost, "/api/medical-reports", a.createReport)
	a.handle(http.MethodPut, "/api/medical-reports/{id}", a.updateReport)
	a.handle(http.MethodDelete, "/api/medical-reports/{id}", a.deleteReport)

	a.handle(http.MethodPost, "/api/files/upload", a.uploadFile)
	a.handle(http.MethodGet, "/api/files", a.listFiles)
	a.handle(http.MethodGet, "/api/files/{id}", a.getFile)
	a.handle(http.MethodGet, "/api/files/entity/{entityType}/{entityId}", a.listEntityFiles)
	a.handle(http.MethodGet, "/api/files/download/{id}", a.downloadFile)
	a.handle(http.MethodDelete, "/api/files/{id}", a.deleteFile)

	a.handle(http.MethodGet, "/api/activity-logs", a.listActivity)
}

// handle mounts h behind the policy registered for method and pattern.
// Extra middleware runs before the gate.
func (a *API) handle(method, pattern string, h http.HandlerFunc, mw ...func(http.Handler) http.Handler) {
	p, ok := routePolicies[method+" "+pattern]
	if !ok {
		panic(fmt.Sprintf("httpapi: no route policy for %s %s", method, pattern))
	}
	var next http.Handler = a.guard(p, h)
	for i := len(mw) - 1; i >= 0; i-- {
		next = mw[i](next)
	}
	a.router.Method(method, pattern, next)
}
