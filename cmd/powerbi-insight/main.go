package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"powerbi-insight/api"
	"powerbi-insight/auth"
	"powerbi-insight/config"
	"powerbi-insight/logging"
	"powerbi-insight/powerbi"
	"powerbi-insight/static"
	"powerbi-insight/utils"
	"powerbi-insight/worker"
	"powerbi-insight/ws"
)

var (
	cfg     *auth.Config
	users   *auth.UsersFile
	pbiCfg  *config.PowerBIConfig
	loggers []*logging.Logger
)

func main() {
	utils.LogToFile("api.log")
	loadEverything()

	svc := powerbi.NewService(pbiCfg, loggers[2])
	api.SetDefaultNames(pbiCfg.DatasetName, pbiCfg.TableName)
	worker.StartSyncWorkers(2, svc, loggers[2])

	hub := ws.NewHub(loggers[0])
	api.RegisterHandlers(cfg, users, svc, hub, loggers[0], loggers[1])
	static.RegisterStaticHandler(cfg, loggers[0])

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	go func() {
		for range sigs {
			log.Println("Reloading configs...")
			loadEverything()
		}
	}()

	log.Printf("Server started listening on %s ...", cfg.Server.Listen)
	log.Fatal(api.StartServer(cfg.Server.Listen))
}

func loadEverything() {
	var err error
	cfg, err = auth.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed config.yaml: %v", err)
	}
	if cfg.Auth.UserBackend == "file" {
		users, err = auth.LoadUsers(cfg.Auth.UserFile)
		if err != nil {
			log.Fatalf("Failed users.yaml: %v", err)
		}
	}
	pbiCfg, err = config.LoadPowerBIConfig(cfg.PowerBIFile)
	if err != nil {
		log.Fatalf("Failed %s: %v", cfg.PowerBIFile, err)
	}
	os.MkdirAll(cfg.Server.LogDir, 0755)
	loggers = []*logging.Logger{
		logging.NewLoggerOrDie(cfg.Server.LogDir, "access.log"),
		logging.NewLoggerOrDie(cfg.Server.LogDir, "login.log"),
		logging.NewLoggerOrDie(cfg.Server.LogDir, "sync.log"),
	}
}
