package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"powerbi-insight/auth"
	"powerbi-insight/logging"
)

// PendingUsersHandler liste les comptes en attente (admin uniquement)
func PendingUsersHandler(cfg *auth.Config, loginLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, isAdmin, _, err := auth.ExtractUserFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !isAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		var pending []string
		switch cfg.Auth.UserBackend {
		case "file":
			pending, err = auth.PendingUsers(cfg.Auth.UserFile)
		case "mysql", "postgres", "sqlite":
			var db *sql.DB
			db, err = sql.Open(driverName(cfg.Auth.UserBackend), cfg.Auth.DBDSN)
			if err == nil {
				defer db.Close()
				pending, err = auth.PendingUsersDB(db, cfg.Auth.PendingRequest)
			}
		}
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		if pending == nil {
			pending = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"pending": pending})
	}
}

// ApproveUserHandler approuve ou rejette un compte en attente.
// Body: {"username": "...", "action": "approve"|"reject"}
func ApproveUserHandler(cfg *auth.Config, users *auth.UsersFile, loginLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
			return
		}
		adminName, isAdmin, _, err := auth.ExtractUserFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if !isAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			Username string `json:"username"`
			Action   string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
			http.Error(w, "JSON invalide", http.StatusBadRequest)
			return
		}
		status := auth.StatusApproved
		if req.Action == "reject" {
			status = auth.StatusDisabled
		}

		switch cfg.Auth.UserBackend {
		case "file":
			err = auth.SetStatus(cfg.Auth.UserFile, req.Username, status)
			if err == nil {
				// tient la copie en mémoire du LoginHandler à jour
				if info, ok := users.Users[req.Username]; ok {
					info.Status = status
					users.Users[req.Username] = info
				}
			}
		case "mysql", "postgres", "sqlite":
			var db *sql.DB
			db, err = sql.Open(driverName(cfg.Auth.UserBackend), cfg.Auth.DBDSN)
			if err == nil {
				defer db.Close()
				err = auth.SetUserStatusDB(db, cfg.Auth.UserStatusUpdate, req.Username, status)
			}
		}
		if err == auth.ErrUserNotFound {
			http.Error(w, "Utilisateur inconnu", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		loginLogger.Write("APPROVAL user=" + req.Username + " status=" + status + " by=" + adminName)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"username": req.Username, "status": status})
	}
}
