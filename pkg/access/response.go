package access

import (
	"encoding/json"
	"net/http"
)

// DeniedResponse is the body of a rejected request.
type DeniedResponse struct {
	Code         Reason   `json:"code"`
	CurrentPlan  string   `json:"currentPlan,omitempty"`
	AllowedPlans []string `json:"allowedPlans,omitempty"`
}

// WriteDenied writes the JSON rejection for d.
func WriteDenied(w http.ResponseWriter, _ *http.Request, d Decision) {
	body := DeniedResponse{Code: d.Reason}
	switch d.Reason {
	case ReasonPlanUpgradeRequired:
		body.CurrentPlan = d.CurrentPlan()
		body.AllowedPlans = d.AllowedPlans
	case ReasonSubscriptionRequired:
		body.AllowedPlans = d.AllowedPlans
	}

	status := d.Status()
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
