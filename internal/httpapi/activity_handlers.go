package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"clinicdesk.org/internal/audit"
)

func (a *API) listActivity(w http.ResponseWriter, r *http.Request) {
	f := audit.Filter{
		Action:     audit.Action(formValue(r, "action")),
		EntityType: formValue(r, "entity_type", "entityType"),
	}
	var err error
	if f.From, err = audit.ParseBound(formValue(r, "start_date", "startDate"), false); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if f.To, err = audit.ParseBound(formValue(r, "end_date", "endDate"), true); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if raw := formValue(r, "limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil || f.Limit <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	logs, err := a.activity.List(r.Context(), f)
	if err != nil {
		if errors.Is(err, audit.ErrInvalidFilter) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		a.internalError(w, r, err)
		return
	}
	if logs == nil {
		logs = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
