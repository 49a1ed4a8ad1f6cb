package api

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"powerbi-insight/auth"
	"powerbi-insight/logging"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// driverName : le nom de backend dans la config n'est pas toujours
// celui du driver enregistré (sqlite -> sqlite3)
func driverName(backend string) string {
	if backend == "sqlite" {
		return "sqlite3"
	}
	return backend
}

func LoginHandler(cfg *auth.Config, users *auth.UsersFile, loginLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "JSON invalide", http.StatusBadRequest)
			log.Println("LOGIN FAIL (bad json)")
			return
		}
		username := req.Username
		var userHash, userSalt, status string
		isAdmin := false

		if cfg.Auth.UserBackend == "file" {
			u, ok := users.Users[username]
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				loginLogger.Write("LOGIN FAIL (no user) user=" + username)
				return
			}
			userHash, userSalt = u.Hash, u.Salt
			isAdmin = u.Admin
			status = u.Status

			passHash, _ := auth.ApplyHashMacro(cfg.Auth.HashMacro, req.Password, username, userSalt, cfg.Auth.Salt)
			if passHash != userHash {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				loginLogger.Write("LOGIN FAIL (wrong pass) user=" + username)
				return
			}
		} else if cfg.Auth.UserBackend == "mysql" || cfg.Auth.UserBackend == "postgres" || cfg.Auth.UserBackend == "sqlite" {
			db, err := sql.Open(driverName(cfg.Auth.UserBackend), cfg.Auth.DBDSN)
			if err != nil {
				http.Error(w, "Erreur base de données", http.StatusInternalServerError)
				loginLogger.Write("LOGIN FAIL (db open) user=" + username)
				return
			}
			defer db.Close()

			userHash, userSalt, isAdmin, status, err = auth.GetUserFromDB(db, cfg.Auth.UserRequest, username)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				loginLogger.Write("LOGIN FAIL (db no user) user=" + username)
				return
			}
			macro := cfg.Auth.DBHashMacro
			if macro == "" {
				macro = cfg.Auth.HashMacro
			}
			passHash, _ := auth.ApplyHashMacro(macro, req.Password, username, userSalt, cfg.Auth.Salt)
			if passHash != userHash {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				loginLogger.Write("LOGIN FAIL (db wrong pass) user=" + username)
				return
			}
		} else {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Comptes en attente ou désactivés : pas de jeton
		if status == auth.StatusPending {
			http.Error(w, "Compte en attente de validation", http.StatusForbidden)
			loginLogger.Write("LOGIN FAIL (pending) user=" + username)
			return
		}
		if status == auth.StatusDisabled {
			http.Error(w, "Compte désactivé", http.StatusForbidden)
			loginLogger.Write("LOGIN FAIL (disabled) user=" + username)
			return
		}

		tokenString, err := auth.GenerateJWT(cfg.JWT.Secret, username, isAdmin, auth.StatusApproved, cfg.JWT.ExpirationMinutes)
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			loginLogger.Write("LOGIN FAIL (jwt error) user=" + username)
			return
		}
		resp := map[string]interface{}{"token": tokenString, "admin": isAdmin}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
		loginLogger.Write("LOGIN OK user=" + username)
	}
}
