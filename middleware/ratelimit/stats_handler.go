package ratelimit

import (
	"encoding/json"
	"net/http"

	"markdown-editor/middleware/ratelimit/domain"
)

// StatsHandler devolve os totais do StatsReader em JSON.
func StatsHandler(reader domain.StatsReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if reader == nil {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "stats disabled"})
			return
		}

		totals, err := reader.Totals(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "stats unavailable"})
			return
		}
		_ = json.NewEncoder(w).Encode(totals)
	})
}
