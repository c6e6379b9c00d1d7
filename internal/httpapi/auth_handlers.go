package httpapi

import (
	"errors"
	"net/http"

	"clinicdesk.org/internal/auth"
	"clinicdesk.org/internal/identity"
)

type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.users.Register(r.Context(), identity.RegisterInput(req))
	if err != nil {
		a.handleIdentityError(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "User registered successfully", map[string]any{"user": u})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := a.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		a.handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	u, err := a.users.Get(r.Context(), id.ID)
	if err != nil {
		a.handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.List(r.Context())
	if err != nil {
		a.handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.users.Get(r.Context(), id)
	if err != nil {
		a.handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req updateUserRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.users.Update(r.Context(), id, identity.UpdateInput(req))
	if err != nil {
		a.handleIdentityError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User updated successfully", map[string]any{"user": u})
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.users.Delete(r.Context(), id); err != nil {
		a.handleIdentityError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully", nil)
}

func (a *API) handleIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, identity.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		a.internalError(w, r, err)
	}
}

func (a *API) internalError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Error("request failed",
		"request_id", RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, r, http.StatusInternalServerError, "internal error")
}
