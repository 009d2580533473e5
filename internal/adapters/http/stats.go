package httpadapter

import "net/http"

func (rt *Router) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.deps.Stats.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) departmentDistribution(w http.ResponseWriter, r *http.Request) {
	shares, err := rt.deps.Stats.DepartmentDistribution(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": shares})
}

func (rt *Router) processingEfficiency(w http.ResponseWriter, r *http.Request) {
	efficiency, err := rt.deps.Stats.ProcessingEfficiency(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, efficiency)
}
