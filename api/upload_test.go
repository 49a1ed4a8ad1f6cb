package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"powerbi-insight/auth"
	"powerbi-insight/logging"
	"powerbi-insight/powerbi"
	"powerbi-insight/worker"
)

type fakeSyncer struct {
	warnings []string
	fail     bool
	lastRows []powerbi.Row
}

func (f *fakeSyncer) Sync(datasetName, tableName string, rows []powerbi.Row) (powerbi.SyncResult, error) {
	f.lastRows = rows
	if f.fail {
		return powerbi.SyncResult{Message: "boom"}, errors.New("boom")
	}
	msg := "Data synchronized"
	return powerbi.SyncResult{Success: true, Message: msg, DatasetID: "ds-new", Warnings: f.warnings}, nil
}

// Un seul worker partagé pour tout le package : la file est globale,
// un deuxième worker volerait les jobs du premier. Chaque test règle
// le comportement du syncer avant d'envoyer sa requête (les handlers
// attendent l'issue, les tests ne se recouvrent donc pas).
var (
	testSyncer     = &fakeSyncer{}
	testWorkerOnce sync.Once
)

func startTestWorker(t *testing.T) {
	t.Helper()
	testWorkerOnce.Do(func() {
		logger, err := logging.NewLogger(t.TempDir(), "sync.log")
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		worker.StartSyncWorkers(1, testSyncer, logger)
	})
}

func multipartCSV(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadHandler_CSV(t *testing.T) {
	cfg := testConfig()
	logger := testLogger(t)
	startTestWorker(t)
	testSyncer.fail = false
	testSyncer.warnings = []string{"delete failed for ds-old"}
	syncer := testSyncer

	handler := UploadHandler(cfg, logger)
	token, _ := auth.GenerateJWT(cfg.JWT.Secret, "alice", false, auth.StatusApproved, 10)

	body, ctype := multipartCSV(t, "data.csv", "region,revenue\nnorth,100\nsouth,200\nwest,300\n")
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if resp.RecordCount != 3 {
		t.Errorf("Expected 3 records, got %d", resp.RecordCount)
	}
	if resp.SyncStatus != "partial" {
		t.Errorf("Expected partial (cleanup warning), got %q", resp.SyncStatus)
	}
	// l'aperçu est borné par la config, fullData reste complet
	if len(resp.PreviewData) != cfg.Upload.PreviewRows {
		t.Errorf("Expected %d preview rows, got %d", cfg.Upload.PreviewRows, len(resp.PreviewData))
	}
	if len(resp.FullData) != 3 {
		t.Errorf("Expected 3 full rows, got %d", len(resp.FullData))
	}
	if len(syncer.lastRows) != 3 {
		t.Errorf("Expected syncer to receive 3 rows, got %d", len(syncer.lastRows))
	}
	if v, ok := syncer.lastRows[0]["revenue"].(float64); !ok || v != 100 {
		t.Errorf("Expected numeric revenue 100, got %#v", syncer.lastRows[0]["revenue"])
	}

	// le statut reste consultable après coup
	statusH := SyncStatusHandler(cfg)
	req = httptest.NewRequest("GET", "/api/sync/status?id="+resp.JobID, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	statusH(w, req)
	var st map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &st)
	if st["status"] != string(worker.StatusComplete) {
		t.Errorf("Expected complete status, got %v", st["status"])
	}
}

func TestUploadHandler_SyncFailureStillReturnsData(t *testing.T) {
	cfg := testConfig()
	startTestWorker(t)
	testSyncer.fail = true
	testSyncer.warnings = nil
	defer func() { testSyncer.fail = false }()

	handler := UploadHandler(cfg, testLogger(t))
	token, _ := auth.GenerateJWT(cfg.JWT.Secret, "alice", false, auth.StatusApproved, 10)

	body, ctype := multipartCSV(t, "data.csv", "region,revenue\nnorth,100\nsouth,200\n")
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler(w, req)

	// l'upload a réussi même si la synchro BI a échoué : 200 avec les
	// données décodées, jamais une erreur HTTP
	if w.Code != 200 {
		t.Fatalf("Expected 200 on sync failure, got %d (%s)", w.Code, w.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if resp.SyncStatus != "partial" {
		t.Errorf("Expected syncStatus partial, got %q", resp.SyncStatus)
	}
	if resp.Message != "File processed but sync failed" {
		t.Errorf("Unexpected message: %q", resp.Message)
	}
	if resp.RecordCount != 2 || len(resp.FullData) != 2 {
		t.Errorf("Expected the 2 decoded rows back, got count=%d full=%d", resp.RecordCount, len(resp.FullData))
	}
	if len(resp.PreviewData) != 2 {
		t.Errorf("Expected 2 preview rows, got %d", len(resp.PreviewData))
	}
	found := false
	for _, warn := range resp.Warnings {
		if strings.Contains(warn, "boom") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected the sync error in warnings, got %v", resp.Warnings)
	}
}

func TestUploadHandler_Unauthorized(t *testing.T) {
	cfg := testConfig()
	handler := UploadHandler(cfg, testLogger(t))
	body, ctype := multipartCSV(t, "data.csv", "a\n1\n")
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != 401 {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
}

func TestUploadHandler_EmptyFile(t *testing.T) {
	cfg := testConfig()
	handler := UploadHandler(cfg, testLogger(t))
	token, _ := auth.GenerateJWT(cfg.JWT.Secret, "alice", false, auth.StatusApproved, 10)

	body, ctype := multipartCSV(t, "data.csv", "region,revenue\n")
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != 400 {
		t.Errorf("Expected 400 for header-only file, got %d", w.Code)
	}
}

func TestSyncStatusHandler_Unknown(t *testing.T) {
	cfg := testConfig()
	handler := SyncStatusHandler(cfg)
	token, _ := auth.GenerateJWT(cfg.JWT.Secret, "alice", false, auth.StatusApproved, 10)
	req := httptest.NewRequest("GET", "/api/sync/status?id=nope", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler(w, req)
	var st map[string]string
	json.Unmarshal(w.Body.Bytes(), &st)
	if st["status"] != "unknown" {
		t.Errorf("Expected unknown status, got %v", st)
	}
}
