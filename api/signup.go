package api

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"powerbi-insight/auth"
	"powerbi-insight/logging"
	"powerbi-insight/utils"
)

// SignupHandler crée un compte avec le statut "pending". Le compte ne
// peut se connecter qu'après approbation par un admin.
func SignupHandler(cfg *auth.Config, loginLogger *logging.Logger) http.HandlerFunc {
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
			return
		}
		if req.Username == "" || req.Password == "" {
			http.Error(w, "Identifiant et mot de passe requis", http.StatusBadRequest)
			return
		}

		salt := utils.RandomHex(8)
		var err error
		switch cfg.Auth.UserBackend {
		case "file":
			var hash string
			hash, err = auth.ApplyHashMacro(cfg.Auth.HashMacro, req.Password, req.Username, salt, cfg.Auth.Salt)
			if err == nil {
				err = auth.CreateUser(cfg.Auth.UserFile, req.Username, hash, salt, auth.StatusPending)
			}
		case "mysql", "postgres", "sqlite":
			var db *sql.DB
			db, err = sql.Open(driverName(cfg.Auth.UserBackend), cfg.Auth.DBDSN)
			if err == nil {
				defer db.Close()
				macro := cfg.Auth.DBHashMacro
				if macro == "" {
					macro = cfg.Auth.HashMacro
				}
				var hash string
				hash, err = auth.ApplyHashMacro(macro, req.Password, req.Username, salt, cfg.Auth.Salt)
				if err == nil {
					err = auth.CreateUserDB(db, cfg.Auth.UserInsert, req.Username, hash, salt, auth.StatusPending)
				}
			}
		default:
			http.Error(w, "Backend utilisateur inconnu", http.StatusInternalServerError)
			return
		}

		if err == auth.ErrUserExists {
			http.Error(w, "Ce compte existe déjà", http.StatusConflict)
			loginLogger.Write("SIGNUP FAIL (exists) user=" + req.Username)
			return
		}
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			loginLogger.Write("SIGNUP FAIL user=" + req.Username + " err=" + err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "Compte créé, en attente de validation par un administrateur",
		})
		loginLogger.Write("SIGNUP OK user=" + req.Username)
	}
}
