package api

import (
	"encoding/json"
	"net/http"

	"powerbi-insight/auth"
	"powerbi-insight/logging"
	"powerbi-insight/powerbi"
)

// EmbedConfigHandler renvoie tout ce qu'il faut au front pour monter
// le rapport embarqué (urls, jeton embed, dataset lié).
func EmbedConfigHandler(cfg *auth.Config, svc *powerbi.Service, accessLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
			return
		}
		username, _, _, err := auth.ExtractUserFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		embed, err := svc.GetEmbedConfig()
		if err != nil {
			// le message porte déjà le diagnostic ou la marche à suivre
			http.Error(w, err.Error(), http.StatusInternalServerError)
			accessLogger.Write("[EMBED_FAIL] user=" + username + " err=" + err.Error())
			return
		}
		accessLogger.Write("[EMBED_OK] user=" + username + " report=" + embed.ReportID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(embed)
	}
}
