package worker

import (
	"sync"
	"time"

	"powerbi-insight/logging"
	"powerbi-insight/powerbi"
)

// Syncer : ce dont un worker a besoin du pipeline BI
type Syncer interface {
	Sync(datasetName, tableName string, rows []powerbi.Row) (powerbi.SyncResult, error)
}

// Maps et file d'attente FIFO
var (
	pendingJobs    = sync.Map{} // id => *SyncJob
	processingJobs = sync.Map{} // id => *SyncOutcome
	pendingMutex   = &sync.Mutex{}
	pendingOrder   = []string{}
)

// Ajoute un job dans la file FIFO
func AddPendingJob(job *SyncJob) {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.Done == nil {
		job.Done = make(chan SyncOutcome, 1)
	}
	pendingJobs.Store(job.ID, job)
	pendingMutex.Lock()
	pendingOrder = append(pendingOrder, job.ID)
	pendingMutex.Unlock()
}

// Récupère puis supprime le plus ancien id FIFO (ou "" si aucun)
func NextPendingID() string {
	pendingMutex.Lock()
	defer pendingMutex.Unlock()
	if len(pendingOrder) == 0 {
		return ""
	}
	nextID := pendingOrder[0]
	pendingOrder = pendingOrder[1:]
	return nextID
}

// Expose les maps pour l'API statut
func PendingJobs() *sync.Map    { return &pendingJobs }
func ProcessingJobs() *sync.Map { return &processingJobs }

// Lance N workers en parallèle
func StartSyncWorkers(num int, svc Syncer, syncLogger *logging.Logger) {
	for i := 0; i < num; i++ {
		go syncWorker(svc, syncLogger)
	}
}

// Un worker traite un job à la fois, dès qu'il en trouve un dans la file
func syncWorker(svc Syncer, syncLogger *logging.Logger) {
	for {
		nextID := NextPendingID()
		if nextID == "" {
			time.Sleep(300 * time.Millisecond)
			continue
		}
		v, ok := pendingJobs.LoadAndDelete(nextID)
		if !ok {
			continue
		}
		job := v.(*SyncJob)
		processingJobs.Store(nextID, &SyncOutcome{Status: StatusProcessing, Owner: job.Owner})

		syncLogger.Writef("[START] id=%s owner=%s dataset=%q rows=%d", nextID, job.Owner, job.DatasetName, len(job.Rows))

		outcome := runJob(job, svc, syncLogger)
		processingJobs.Store(nextID, &outcome)
		job.Done <- outcome
	}
}

func runJob(job *SyncJob, svc Syncer, syncLogger *logging.Logger) SyncOutcome {
	res, err := svc.Sync(job.DatasetName, job.TableName, job.Rows)
	if err != nil {
		syncLogger.Writef("[FAIL] id=%s sync error: %v", job.ID, err)
		return SyncOutcome{Status: StatusError, Result: res, ErrorMsg: err.Error(), Owner: job.Owner}
	}
	syncLogger.Writef("[COMPLETE] id=%s dataset=%s warnings=%d", job.ID, res.DatasetID, len(res.Warnings))
	return SyncOutcome{Status: StatusComplete, Result: res, Owner: job.Owner}
}
