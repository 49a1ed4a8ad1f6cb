package powerbi

import (
	"fmt"
	"strings"
)

type reportInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EmbedURL  string `json:"embedUrl"`
	DatasetID string `json:"datasetId"`
}

func (s *Service) getReport(token string) (*reportInfo, error) {
	var rep reportInfo
	err := s.doJSON("GET", s.apiURL("/groups/%s/reports/%s", s.cfg.WorkspaceID, s.cfg.ReportID), token, nil, &rep)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (s *Service) generateEmbedToken(token, datasetID string) (embedToken string, expiration string, err error) {
	payload := map[string]interface{}{
		"accessLevel": s.cfg.AccessLevel,
		"datasets":    []map[string]string{{"id": datasetID}},
		"allowSaveAs": s.cfg.AllowSaveAs,
	}
	var out struct {
		Token      string `json:"token"`
		Expiration string `json:"expiration"`
	}
	url := s.apiURL("/groups/%s/reports/%s/GenerateToken", s.cfg.WorkspaceID, s.cfg.ReportID)
	if err := s.doJSON("POST", url, token, payload, &out); err != nil {
		return "", "", err
	}
	return out.Token, out.Expiration, nil
}

// GetEmbedConfig assemble le payload d'embed pour le client d'affichage.
// Le dataset retenu est TOUJOURS celui que le rapport déclare lui-même :
// si un rebind vient d'échouer ou n'a pas encore eu lieu, le rapport
// reste embarquable sur son ancien dataset, encore peuplé. Le cache
// nom->id n'est lu qu'à titre de diagnostic.
func (s *Service) GetEmbedConfig() (*EmbedConfig, error) {
	token, err := s.GetAccessToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedConfig, err)
	}

	// rapport et cache interrogés en parallèle, les deux sont en lecture seule
	type reportRes struct {
		report *reportInfo
		err    error
	}
	reportCh := make(chan reportRes, 1)
	hintCh := make(chan string, 1)
	go func() {
		rep, err := s.getReport(token)
		reportCh <- reportRes{rep, err}
	}()
	go func() {
		id, ok := s.FindDatasetID(s.cfg.DatasetName)
		if !ok {
			id = ""
		}
		hintCh <- id
	}()
	rr := <-reportCh
	hint := <-hintCh
	if rr.err != nil {
		return nil, s.embedFailure("fetch report", rr.err, token)
	}
	report := rr.report
	s.logf("[EMBED] report %q bound to dataset %s", report.Name, report.DatasetID)
	if hint != "" && hint != report.DatasetID {
		// attendu de façon transitoire pendant une bascule, jamais une erreur
		s.logf("[EMBED] dataset cache points at %s but report binding is %s, using the binding", hint, report.DatasetID)
	}

	embedTok, expiry, err := s.generateEmbedToken(token, report.DatasetID)
	if err != nil {
		return nil, s.embedFailure("generate embed token", err, token)
	}

	return &EmbedConfig{
		ReportID:    report.ID,
		ReportName:  report.Name,
		EmbedURL:    report.EmbedURL,
		QnaEmbedURL: strings.TrimRight(s.cfg.EmbedURL, "/") + "/qnaEmbed?groupId=" + s.cfg.WorkspaceID,
		EmbedToken:  embedTok,
		Expiry:      expiry,
		DatasetID:   report.DatasetID,
	}, nil
}

// embedFailure enrichit les échecs 401/403/404 d'une explication
// actionnable avant de les remonter
func (s *Service) embedFailure(step string, err error, token string) error {
	switch StatusOf(err) {
	case 401:
		return fmt.Errorf("%w: %s: %v\n%s", ErrEmbedConfig, step, err, authGuidance())
	case 403:
		return fmt.Errorf("%w: %s: %v\n%s", ErrEmbedConfig, step, err, accessGuidance(s.cfg.ClientID))
	case 404:
		return fmt.Errorf("%w: %s: %v\n%s", ErrEmbedConfig, step, err, s.diagnose(token))
	}
	return fmt.Errorf("%w: %s: %v", ErrEmbedConfig, step, err)
}
