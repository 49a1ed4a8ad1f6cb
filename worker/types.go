package worker

import (
	"time"

	"powerbi-insight/powerbi"
)

// Statuts possibles d'un job de synchronisation
type SyncStatus string

const (
	StatusWaiting    SyncStatus = "waiting"
	StatusProcessing SyncStatus = "processing"
	StatusComplete   SyncStatus = "complete"
	StatusError      SyncStatus = "error"
)

// SyncJob : une synchronisation BI en attente. Done reçoit l'issue,
// ce qui permet au handler d'upload d'attendre la fin du cycle tout en
// laissant la file sérialiser les jobs.
type SyncJob struct {
	ID          string
	DatasetName string
	TableName   string
	Rows        []powerbi.Row
	Owner       string // user à l'origine
	CreatedAt   time.Time
	Done        chan SyncOutcome
}

// SyncOutcome : résultat conservé pour l'API de statut
type SyncOutcome struct {
	Status   SyncStatus
	Result   powerbi.SyncResult
	ErrorMsg string
	Owner    string
}
