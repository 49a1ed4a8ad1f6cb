package powerbi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"powerbi-insight/config"
	"powerbi-insight/logging"
)

// Row : une ligne uploadée, colonne -> valeur scalaire (string ou float64)
type Row map[string]interface{}

// DatasetRef identifie une génération d'un dataset. Plusieurs générations
// peuvent partager le même nom logique ; une seule est liée au rapport.
type DatasetRef struct {
	Name      string
	ID        string
	CreatedAt time.Time
}

// EmbedConfig : le payload complet attendu par le client d'affichage
type EmbedConfig struct {
	ReportID    string `json:"reportId"`
	ReportName  string `json:"reportName"`
	EmbedURL    string `json:"embedUrl"`
	QnaEmbedURL string `json:"qnaEmbedUrl"`
	EmbedToken  string `json:"embedToken"`
	Expiry      string `json:"expiry"`
	DatasetID   string `json:"datasetId"`
}

// Service porte tout l'état partagé du pipeline : client HTTP, cache de
// token et cache nom->id. Les deux caches sont consultatifs, jamais
// utilisés pour décider quel dataset est réellement lié au rapport.
type Service struct {
	cfg    *config.PowerBIConfig
	httpc  *http.Client
	logger *logging.Logger

	tokenMu sync.Mutex
	token   accessToken

	datasetCache sync.Map // nom logique -> id (indication de perf uniquement)
	syncLocks    sync.Map // nom logique -> *sync.Mutex
}

func NewService(cfg *config.PowerBIConfig, logger *logging.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger,
		httpc: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		},
	}
}

func (s *Service) log(msg string) {
	if s.logger != nil {
		s.logger.Write(msg)
	}
}

func (s *Service) logf(format string, args ...interface{}) {
	s.log(fmt.Sprintf(format, args...))
}

// apiError : échec HTTP côté service distant, avec le statut conservé
// pour la classification 401/403/404
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("powerbi HTTP %d: %s", e.Status, e.Body)
}

// StatusOf extrait le statut HTTP d'une erreur d'appel distant (0 sinon)
func StatusOf(err error) int {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func (s *Service) apiURL(format string, args ...interface{}) string {
	return s.cfg.APIURL + fmt.Sprintf(format, args...)
}

// doJSON exécute un appel authentifié et décode la réponse JSON dans out
func (s *Service) doJSON(method, url, token string, body interface{}, out interface{}) error {
	var rd io.Reader
	if body != nil {
		j, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(j)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bb, _ := io.ReadAll(resp.Body)
		return &apiError{Status: resp.StatusCode, Body: string(bb)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
