package powerbi

import (
	"fmt"
	"sync"
)

// SyncResult : issue d'un cycle publish->rebind->cleanup. Success reste
// distinct de Warnings : un nettoyage raté n'échoue jamais le cycle.
type SyncResult struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	DatasetID string   `json:"datasetId,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

func (s *Service) nameLock(name string) *sync.Mutex {
	v, _ := s.syncLocks.LoadOrStore(name, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Sync exécute la bascule complète pour un nom de dataset :
//  1. snapshot de l'ancienne génération (AVANT toute création, le
//     nouveau dataset ne peut donc pas s'y retrouver)
//  2. création + remplissage du nouveau dataset
//  3. rebind du rapport fixe vers le nouveau dataset
//  4. suppression best-effort de l'ancienne génération
//
// Deux uploads concurrents sur le même nom sont sérialisés par un mutex
// par nom : sans lui, deux snapshots pourraient se recouvrir et une
// bascule supprimerait le dataset que l'autre vient de lier.
func (s *Service) Sync(datasetName, tableName string, rows []Row) (SyncResult, error) {
	mu := s.nameLock(datasetName)
	mu.Lock()
	defer mu.Unlock()

	token, err := s.GetAccessToken()
	if err != nil {
		return SyncResult{Message: err.Error()}, err
	}
	olds, err := s.listDatasetsByName(token, datasetName)
	if err != nil {
		err = fmt.Errorf("%w: list old generation: %v", ErrDatasetCreate, err)
		return SyncResult{Message: err.Error()}, err
	}
	s.logf("[SYNC] found %d old dataset(s) named %q", len(olds), datasetName)

	ref, err := s.Publish(datasetName, tableName, rows)
	if err != nil {
		return SyncResult{Message: err.Error()}, err
	}

	warnings, err := s.promoteOver(token, ref, olds)
	if err != nil {
		// le rapport pointe toujours sur son ancien dataset, état cohérent ;
		// le nouveau dataset reste orphelin, trade-off assumé
		return SyncResult{Message: err.Error(), DatasetID: ref.ID, Warnings: warnings}, err
	}
	return SyncResult{
		Success:   true,
		Message:   "Data refreshed successfully",
		DatasetID: ref.ID,
		Warnings:  warnings,
	}, nil
}

// Promote rebinde le rapport sur newRef puis retire les datasets plus
// anciens portant le même nom. Variante autonome de l'étape 3-4 de Sync :
// l'ancienne génération est listée ici, newRef en est exclu.
func (s *Service) Promote(datasetName string, newRef DatasetRef) ([]string, error) {
	mu := s.nameLock(datasetName)
	mu.Lock()
	defer mu.Unlock()

	token, err := s.GetAccessToken()
	if err != nil {
		return nil, err
	}
	olds, err := s.listDatasetsByName(token, datasetName)
	if err != nil {
		return nil, fmt.Errorf("%w: list old generation: %v", ErrRebind, err)
	}
	return s.promoteOver(token, newRef, olds)
}

func (s *Service) promoteOver(token string, newRef DatasetRef, olds []datasetInfo) ([]string, error) {
	rebindURL := s.apiURL("/groups/%s/reports/%s/Rebind", s.cfg.WorkspaceID, s.cfg.ReportID)
	if err := s.doJSON("POST", rebindURL, token, map[string]string{"datasetId": newRef.ID}, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRebind, err)
	}
	s.logf("[SYNC] report %s rebound to dataset %s", s.cfg.ReportID, newRef.ID)

	// nettoyage : chaque suppression est tentée indépendamment, un échec
	// devient un warning et ne bloque ni les suivantes ni le cycle
	var warnings []string
	for _, old := range olds {
		if old.ID == newRef.ID {
			// jamais celui qu'on vient de créer
			continue
		}
		if err := s.deleteDataset(token, old.ID); err != nil {
			w := fmt.Sprintf("cleanup: delete dataset %s: %v", old.ID, err)
			warnings = append(warnings, w)
			s.log("[SYNC] " + w)
			continue
		}
		s.logf("[SYNC] deleted old dataset %s", old.ID)
	}
	return warnings, nil
}
