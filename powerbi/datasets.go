package powerbi

import (
	"fmt"
	"sort"
	"time"
)

type datasetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Column : une colonne du schéma poussé au service distant
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

// InferColumns déduit le schéma de la première ligne : numérique si la
// valeur échantillonnée l'est, texte sinon. Heuristique volontairement
// naïve, l'homogénéité des lignes suivantes n'est pas vérifiée.
// Colonnes émises en ordre trié pour rester déterministe.
func InferColumns(row Row) []Column {
	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		dataType := "String"
		switch row[name].(type) {
		case float64, float32, int, int32, int64:
			dataType = "Double"
		}
		cols = append(cols, Column{Name: name, DataType: dataType})
	}
	return cols
}

func (s *Service) listDatasets(token string) ([]datasetInfo, error) {
	var out struct {
		Value []datasetInfo `json:"value"`
	}
	err := s.doJSON("GET", s.apiURL("/groups/%s/datasets", s.cfg.WorkspaceID), token, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (s *Service) listDatasetsByName(token, name string) ([]datasetInfo, error) {
	all, err := s.listDatasets(token)
	if err != nil {
		return nil, err
	}
	var matches []datasetInfo
	for _, d := range all {
		if d.Name == name {
			matches = append(matches, d)
		}
	}
	return matches, nil
}

// FindDatasetID résout un nom logique vers l'id courant, via le cache
// nom->id. Indication de performance uniquement : le résultat peut être
// périmé et ne doit JAMAIS servir à décider quel dataset est lié au
// rapport (seul le binding lu sur le rapport fait foi). L'absence n'est
// pas une erreur.
func (s *Service) FindDatasetID(name string) (string, bool) {
	if v, ok := s.datasetCache.Load(name); ok {
		return v.(string), true
	}
	token, err := s.GetAccessToken()
	if err != nil {
		s.logf("[DATASET] lookup %q skipped: %v", name, err)
		return "", false
	}
	all, err := s.listDatasets(token)
	if err != nil {
		s.logf("[DATASET] lookup %q failed: %v", name, err)
		return "", false
	}
	for _, d := range all {
		if d.Name == name {
			s.datasetCache.Store(name, d.ID)
			return d.ID, true
		}
	}
	return "", false
}

// Publish crée TOUJOURS un nouveau dataset puis y écrit toutes les lignes.
// On ne réutilise jamais un id existant : l'ancien dataset continue de
// servir le rapport jusqu'à ce que le rebind aboutisse (bascule sans
// interruption). Le ref n'est retourné qu'une fois toutes les lignes
// écrites.
func (s *Service) Publish(datasetName, tableName string, rows []Row) (DatasetRef, error) {
	if len(rows) == 0 {
		return DatasetRef{}, ErrEmptyBatch
	}
	token, err := s.GetAccessToken()
	if err != nil {
		return DatasetRef{}, err
	}

	payload := map[string]interface{}{
		"name":        datasetName,
		"defaultMode": "Push",
		"tables": []map[string]interface{}{
			{"name": tableName, "columns": InferColumns(rows[0])},
		},
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := s.doJSON("POST", s.apiURL("/groups/%s/datasets", s.cfg.WorkspaceID), token, payload, &created); err != nil {
		return DatasetRef{}, fmt.Errorf("%w: %v", ErrDatasetCreate, err)
	}
	ref := DatasetRef{Name: datasetName, ID: created.ID, CreatedAt: time.Now()}
	s.logf("[PUBLISH] dataset created name=%q id=%s", datasetName, ref.ID)

	rowsURL := s.apiURL("/groups/%s/datasets/%s/tables/%s/rows", s.cfg.WorkspaceID, ref.ID, tableName)
	if err := s.doJSON("POST", rowsURL, token, map[string]interface{}{"rows": rows}, nil); err != nil {
		// le dataset existe mais est vide : surtout ne pas le lier
		s.logf("[PUBLISH] row insert failed, dataset %s left unpopulated", ref.ID)
		return DatasetRef{}, fmt.Errorf("%w: %v", ErrRowsWrite, err)
	}
	s.logf("[PUBLISH] %d rows written to dataset %s", len(rows), ref.ID)

	// mise à jour du cache, best-effort
	s.datasetCache.Store(datasetName, ref.ID)
	return ref, nil
}

func (s *Service) deleteDataset(token, id string) error {
	return s.doJSON("DELETE", s.apiURL("/groups/%s/datasets/%s", s.cfg.WorkspaceID, id), token, nil, nil)
}
