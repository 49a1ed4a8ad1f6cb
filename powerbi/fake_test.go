package powerbi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"powerbi-insight/config"
)

// fakeBI émule le service distant : datasets, binding du rapport,
// endpoints token/rebind/embed. Tout l'état est derrière un mutex.
type fakeBI struct {
	mu          sync.Mutex
	datasets    []datasetInfo
	rowsWritten map[string][]map[string]interface{} // dataset id -> lignes reçues
	binding     string                              // dataset actuellement lié au rapport
	groups      []groupInfo
	reports     []reportSummary

	nextID     int
	tokenCalls int
	deleted    []string

	failCreate   bool
	failRows     bool
	failRebind   bool
	failDeleteID string
	reportStatus int // si != 0, GET report répond ce statut

	lastEmbedDatasetID string
}

func newFakeBI() *fakeBI {
	return &fakeBI{
		rowsWritten: map[string][]map[string]interface{}{},
		groups:      []groupInfo{{ID: "ws1", Name: "Test Workspace"}},
		reports:     []reportSummary{{ID: "rep1", Name: "Analytics Report"}},
	}
}

func (f *fakeBI) addDataset(id, name string) {
	f.datasets = append(f.datasets, datasetInfo{ID: id, Name: name})
}

func (f *fakeBI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/oauth2/v2.0/token"):
			f.tokenCalls++
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": fmt.Sprintf("tok-%d", f.tokenCalls),
				"expires_in":   3600,
			})

		case path == "/groups":
			json.NewEncoder(w).Encode(map[string]interface{}{"value": f.groups})

		case path == "/groups/ws1/datasets" && r.Method == "GET":
			json.NewEncoder(w).Encode(map[string]interface{}{"value": f.datasets})

		case path == "/groups/ws1/datasets" && r.Method == "POST":
			if f.failCreate {
				http.Error(w, `{"error":"create refused"}`, http.StatusBadRequest)
				return
			}
			var body struct {
				Name string `json:"name"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.nextID++
			id := fmt.Sprintf("ds-%d", f.nextID)
			f.datasets = append(f.datasets, datasetInfo{ID: id, Name: body.Name})
			json.NewEncoder(w).Encode(map[string]string{"id": id})

		case strings.HasPrefix(path, "/groups/ws1/datasets/") && strings.HasSuffix(path, "/rows"):
			if f.failRows {
				http.Error(w, `{"error":"push refused"}`, http.StatusBadRequest)
				return
			}
			parts := strings.Split(path, "/")
			id := parts[4]
			var body struct {
				Rows []map[string]interface{} `json:"rows"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.rowsWritten[id] = append(f.rowsWritten[id], body.Rows...)
			w.WriteHeader(http.StatusOK)

		case strings.HasPrefix(path, "/groups/ws1/datasets/") && r.Method == "DELETE":
			parts := strings.Split(path, "/")
			id := parts[4]
			if id == f.failDeleteID {
				http.Error(w, `{"error":"delete refused"}`, http.StatusConflict)
				return
			}
			f.deleted = append(f.deleted, id)
			kept := f.datasets[:0]
			for _, d := range f.datasets {
				if d.ID != id {
					kept = append(kept, d)
				}
			}
			f.datasets = kept
			w.WriteHeader(http.StatusOK)

		case path == "/groups/ws1/reports" && r.Method == "GET":
			json.NewEncoder(w).Encode(map[string]interface{}{"value": f.reports})

		case path == "/groups/ws1/reports/rep1" && r.Method == "GET":
			if f.reportStatus != 0 {
				http.Error(w, `{"error":"report lookup failed"}`, f.reportStatus)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"id":        "rep1",
				"name":      "Analytics Report",
				"embedUrl":  "https://embed.example/rep1",
				"datasetId": f.binding,
			})

		case path == "/groups/ws1/reports/rep1/Rebind":
			if f.failRebind {
				http.Error(w, `{"error":"rebind refused"}`, http.StatusBadRequest)
				return
			}
			var body struct {
				DatasetID string `json:"datasetId"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.binding = body.DatasetID
			w.WriteHeader(http.StatusOK)

		case path == "/groups/ws1/reports/rep1/GenerateToken":
			var body struct {
				Datasets []map[string]string `json:"datasets"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if len(body.Datasets) > 0 {
				f.lastEmbedDatasetID = body.Datasets[0]["id"]
			}
			json.NewEncoder(w).Encode(map[string]string{
				"token":      "embed-tok",
				"expiration": "2026-08-29T12:00:00Z",
			})

		default:
			http.NotFound(w, r)
		}
	})
}

func newTestService(t *testing.T, fake *fakeBI) (*Service, func()) {
	t.Helper()
	ts := httptest.NewServer(fake.handler())
	cfg := &config.PowerBIConfig{
		AuthURL:     ts.URL,
		APIURL:      ts.URL,
		TenantID:    "t1",
		ClientID:    "client1",
		WorkspaceID: "ws1",
		ReportID:    "rep1",
	}
	cfg.ApplyDefaults()
	cfg.AuthURL = ts.URL
	cfg.APIURL = ts.URL
	return NewService(cfg, nil), ts.Close
}
