package api

import (
	"net/http"
)

// HealthHandler reports service readiness. Readiness means a model
// artifact is loaded and the service is accepting prediction requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a health check handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

type healthResponse struct {
	Status       string  `json:"status"`
	State        string  `json:"state"`
	ServiceReady bool    `json:"service_ready"`
	ModelType    string  `json:"model_type,omitempty"`
	AdstockDecay float64 `json:"adstock_decay,omitempty"`
}

// HandleHealth returns 200 with model provenance when serving, 503
// otherwise. Load balancers key off the status code, humans off the body.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	resp := healthResponse{
		Status:       "unavailable",
		State:        h.deps.State(),
		ServiceReady: h.deps.Ready(),
	}
	status := http.StatusServiceUnavailable
	if resp.ServiceReady {
		resp.Status = "healthy"
		status = http.StatusOK
		if info, err := h.deps.Info(); err == nil {
			resp.ModelType = info.Kind
			resp.AdstockDecay = info.AdstockDecay
		}
	}
	writeJSON(w, status, resp)
}
