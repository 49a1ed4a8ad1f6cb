package api

import (
	"encoding/json"
	"net/http"
	"time"

	"powerbi-insight/auth"
	"powerbi-insight/logging"
	"powerbi-insight/powerbi"
	"powerbi-insight/upload"
	"powerbi-insight/utils"
	"powerbi-insight/worker"
)

// Réponse d'un upload : aperçu + issue de la synchronisation
type uploadResponse struct {
	Message     string        `json:"message"`
	SyncStatus  string        `json:"syncStatus"` // success | partial
	RecordCount int           `json:"recordCount"`
	PreviewData []powerbi.Row `json:"previewData"`
	FullData    []powerbi.Row `json:"fullData"`
	JobID       string        `json:"jobId"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// UploadHandler reçoit un CSV ou un XLSX (multipart, champ "file"),
// décode les lignes, met le job en file et attend l'issue de la
// synchronisation avant de répondre.
func UploadHandler(cfg *auth.Config, accessLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
			return
		}
		username, _, status, err := auth.ExtractUserFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if status != "" && status != auth.StatusApproved {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		maxBytes := int64(cfg.Upload.MaxSizeMB) << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			http.Error(w, "Fichier trop volumineux ou formulaire invalide", http.StatusBadRequest)
			accessLogger.Write("[UPLOAD_REFUSED] user=" + username + " err=" + err.Error())
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Champ 'file' manquant", http.StatusBadRequest)
			return
		}
		defer file.Close()

		rows, err := upload.DecodeFile(header.Filename, file)
		if err != nil {
			http.Error(w, "Décodage impossible: "+err.Error(), http.StatusBadRequest)
			accessLogger.Write("[UPLOAD_DECODE_FAIL] user=" + username + " file=" + header.Filename + " err=" + err.Error())
			return
		}
		if len(rows) == 0 {
			http.Error(w, "Aucune ligne de données dans le fichier", http.StatusBadRequest)
			return
		}

		job := &worker.SyncJob{
			ID:          utils.GenerateJobID(),
			DatasetName: datasetNameFor(r),
			TableName:   tableNameFor(r),
			Rows:        rows,
			Owner:       username,
			Done:        make(chan worker.SyncOutcome, 1),
		}
		worker.AddPendingJob(job)
		accessLogger.Write("[UPLOAD] user=" + username + " file=" + header.Filename + " job=" + job.ID)

		// réponse synchrone : on attend le worker
		var outcome worker.SyncOutcome
		select {
		case outcome = <-job.Done:
		case <-time.After(2 * time.Minute):
			http.Error(w, "Synchronisation trop longue, consultez /api/sync/status?id="+job.ID, http.StatusGatewayTimeout)
			return
		}
		// l'upload et la synchro sont découplés : même si la bascule BI a
		// échoué, le fichier est décodé et ses données sont renvoyées au
		// client, avec syncStatus "partial" et le détail en warning
		syncStatus := "success"
		message := outcome.Result.Message
		warnings := outcome.Result.Warnings
		if outcome.Status == worker.StatusError {
			syncStatus = "partial"
			message = "File processed but sync failed"
			warnings = append(warnings, outcome.ErrorMsg)
			accessLogger.Write("[UPLOAD_SYNC_FAIL] job=" + job.ID + " err=" + outcome.ErrorMsg)
		} else if len(warnings) > 0 {
			syncStatus = "partial"
		}
		preview := rows
		if len(preview) > cfg.Upload.PreviewRows {
			preview = preview[:cfg.Upload.PreviewRows]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(uploadResponse{
			Message:     message,
			SyncStatus:  syncStatus,
			RecordCount: len(rows),
			PreviewData: preview,
			FullData:    rows,
			JobID:       job.ID,
			Warnings:    warnings,
		})
	}
}

// Les noms par défaut viennent de powerbi.yaml ; le client peut les
// surcharger par query string.
var defaultDatasetName = "User Uploaded Data"
var defaultTableName = "Analytics"

func SetDefaultNames(dataset, table string) {
	if dataset != "" {
		defaultDatasetName = dataset
	}
	if table != "" {
		defaultTableName = table
	}
}

func datasetNameFor(r *http.Request) string {
	if v := r.URL.Query().Get("dataset"); v != "" {
		return v
	}
	return defaultDatasetName
}

func tableNameFor(r *http.Request) string {
	if v := r.URL.Query().Get("table"); v != "" {
		return v
	}
	return defaultTableName
}
