package powerbi

import "errors"

// Une erreur par étape du pipeline. La distinction compte pour l'appelant :
// ErrRebind laisse le rapport sur son ancien dataset (état sûr), alors que
// ErrRowsWrite laisse un dataset créé mais vide (à ne jamais lier).
var (
	ErrAuth          = errors.New("powerbi: token acquisition failed")
	ErrEmptyBatch    = errors.New("powerbi: empty row batch, no schema to infer")
	ErrDatasetCreate = errors.New("powerbi: dataset creation failed")
	ErrRowsWrite     = errors.New("powerbi: row insert failed, dataset left unpopulated")
	ErrRebind        = errors.New("powerbi: report rebind failed, previous binding kept")
	ErrEmbedConfig   = errors.New("powerbi: embed config unavailable")
)
