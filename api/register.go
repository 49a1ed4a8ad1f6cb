package api

import (
	"net/http"

	"powerbi-insight/auth"
	"powerbi-insight/logging"
	"powerbi-insight/powerbi"
	"powerbi-insight/ws"
)

func RegisterHandlers(cfg *auth.Config, users *auth.UsersFile, svc *powerbi.Service, hub *ws.Hub, accessLogger, loginLogger *logging.Logger) {
	http.HandleFunc("/api/login", LoginHandler(cfg, users, loginLogger))
	http.HandleFunc("/api/signup", SignupHandler(cfg, loginLogger))
	http.HandleFunc("/api/admin/pending", PendingUsersHandler(cfg, loginLogger))
	http.HandleFunc("/api/admin/approve", ApproveUserHandler(cfg, users, loginLogger))
	http.HandleFunc("/api/upload", UploadHandler(cfg, accessLogger))
	http.HandleFunc("/api/sync/status", SyncStatusHandler(cfg))
	http.HandleFunc("/api/powerbi/embed-config", EmbedConfigHandler(cfg, svc, accessLogger))
	http.HandleFunc("/ws", hub.Handler())
}

func StartServer(listenAddr string) error {
	return http.ListenAndServe(listenAddr, nil)
}
