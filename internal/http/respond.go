package httpapi

import (
	"encoding/json"
	"net/http"

	dErrors "olympreg/pkg/domain-errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain error codes to HTTP statuses; this is the only place
// the mapping exists.
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeRequiredMissing, dErrors.CodeFormatInvalid, dErrors.CodeReferenceInvalid:
		return http.StatusBadRequest
	case dErrors.CodeUniqueness, dErrors.CodeStateConflict, dErrors.CodeRaceCondition:
		return http.StatusConflict
	case dErrors.CodePermissionDenied:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := statusFor(code)
	body := map[string]string{"message": err.Error()}
	if code != "" {
		body["error"] = string(code)
	} else {
		body["error"] = "internal"
		body["message"] = "internal error"
	}
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, dErrors.New(dErrors.CodeFormatInvalid, "invalid request body"))
		return false
	}
	return true
}
