package api

import (
	"encoding/json"
	"net/http"

	"powerbi-insight/auth"
	"powerbi-insight/worker"
)

func SyncStatusHandler(cfg *auth.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _, _, err := auth.ExtractUserFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing id", http.StatusBadRequest)
			return
		}
		if _, ok := worker.PendingJobs().Load(id); ok {
			json.NewEncoder(w).Encode(map[string]string{
				"status": string(worker.StatusWaiting),
			})
			return
		}
		if val, ok := worker.ProcessingJobs().Load(id); ok {
			outcome := val.(*worker.SyncOutcome)
			out := map[string]interface{}{
				"status": outcome.Status,
			}
			if outcome.Status == worker.StatusError {
				out["error"] = outcome.ErrorMsg
			}
			if outcome.Status == worker.StatusComplete {
				out["datasetId"] = outcome.Result.DatasetID
				if len(outcome.Result.Warnings) > 0 {
					out["warnings"] = outcome.Result.Warnings
				}
			}
			json.NewEncoder(w).Encode(out)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"status": "unknown",
		})
	}
}
