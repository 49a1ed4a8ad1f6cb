package powerbi

import (
	"fmt"
	"strings"
)

type groupInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type reportSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Probes : résultats bruts des sondes en lecture seule lancées après un
// 404. Séparé de leur exécution pour que l'arbre de décision soit
// testable sans réseau.
type Probes struct {
	Groups    []groupInfo
	GroupsErr error

	Reports    []reportSummary
	ReportsErr error

	Datasets    []datasetInfo
	DatasetsErr error
}

func (s *Service) listGroups(token string) ([]groupInfo, error) {
	var out struct {
		Value []groupInfo `json:"value"`
	}
	if err := s.doJSON("GET", s.apiURL("/groups"), token, nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (s *Service) listReports(token string) ([]reportSummary, error) {
	var out struct {
		Value []reportSummary `json:"value"`
	}
	if err := s.doJSON("GET", s.apiURL("/groups/%s/reports", s.cfg.WorkspaceID), token, nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// diagnose enchaîne les sondes : appartenance au workspace, puis liste
// des rapports, puis liste des datasets si le workspace semble vide.
// Ne mutile jamais rien et ne laisse jamais échapper d'erreur : au pire
// la chaîne retournée contient "diagnostic failed".
func (s *Service) diagnose(token string) string {
	var p Probes
	p.Groups, p.GroupsErr = s.listGroups(token)
	if p.GroupsErr == nil && containsGroup(p.Groups, s.cfg.WorkspaceID) {
		p.Reports, p.ReportsErr = s.listReports(token)
		if p.ReportsErr == nil && len(p.Reports) == 0 {
			p.Datasets, p.DatasetsErr = s.listDatasets(token)
		}
	}
	msg := BuildDiagnostic(s.cfg.WorkspaceID, s.cfg.ReportID, p)
	s.log("[DIAG] " + strings.ReplaceAll(msg, "\n", " | "))
	return msg
}

func containsGroup(groups []groupInfo, id string) bool {
	for _, g := range groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

// BuildDiagnostic : fonction pure résultats-de-sondes -> explication.
// S'arrête au premier signal qui lève l'ambiguïté ; les erreurs de sonde
// sont repliées dans le texte au lieu de remplacer l'erreur d'origine.
func BuildDiagnostic(workspaceID, reportID string, p Probes) string {
	var b strings.Builder
	b.WriteString("** CONNECTION FAILED (analysis mode) **\n")

	if p.GroupsErr != nil {
		b.WriteString("diagnostic failed: " + p.GroupsErr.Error())
		return b.String()
	}

	if !containsGroup(p.Groups, workspaceID) {
		b.WriteString("CRITICAL PERMISSION ERROR:\n")
		b.WriteString(fmt.Sprintf("the service principal is NOT a member of the configured workspace (%s).\n", workspaceID))
		if len(p.Groups) == 0 {
			b.WriteString("It has access to NO workspaces at all.\n")
		} else {
			names := make([]string, 0, len(p.Groups))
			for _, g := range p.Groups {
				names = append(names, g.Name)
			}
			b.WriteString("It only has access to: " + strings.Join(names, ", ") + ".\n")
		}
		b.WriteString("Solution: workspace -> Manage Access -> add the service principal as Admin/Member.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Access to workspace %s is confirmed.\n", workspaceID))

	if p.ReportsErr != nil {
		b.WriteString("diagnostic failed: " + p.ReportsErr.Error())
		return b.String()
	}

	if len(p.Reports) == 0 {
		b.WriteString("BUT the workspace is EMPTY (0 reports visible).\n")
		if p.DatasetsErr != nil {
			b.WriteString("diagnostic failed: " + p.DatasetsErr.Error() + "\n")
		} else if len(p.Datasets) == 0 {
			b.WriteString("Datasets visible: 0 (none).\n")
		} else {
			names := make([]string, 0, len(p.Datasets))
			for _, d := range p.Datasets {
				names = append(names, d.Name)
			}
			b.WriteString(fmt.Sprintf("Datasets visible: %d (%s).\n", len(p.Datasets), strings.Join(names, ", ")))
		}
		b.WriteString(fmt.Sprintf("Did you verify the report id %q? Make sure the report was published to THIS workspace, not 'My Workspace'.", reportID))
		return b.String()
	}

	for _, r := range p.Reports {
		if r.ID == reportID {
			b.WriteString("Report found and id matches. This 404 is very strange (possibly a dataset issue?).")
			return b.String()
		}
	}

	b.WriteString("Report id MISMATCH:\n")
	b.WriteString("Configured id: " + reportID + "\n")
	b.WriteString("Available reports:\n")
	for _, r := range p.Reports {
		b.WriteString(fmt.Sprintf("- %s (%s)\n", r.Name, r.ID))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Les 401/403 n'appellent pas de sonde : la cause est connue d'avance,
// on renvoie directement la marche à suivre.
func authGuidance() string {
	return "Authentication failed (401). Likely causes:\n" +
		"1. Invalid client secret: double check the configured secret.\n" +
		"2. Tenant settings: admin portal -> Developer settings -> 'Allow service principals to use APIs' must be enabled.\n" +
		"3. Wrong tenant id."
}

func accessGuidance(clientID string) string {
	return "Access denied (403).\n" +
		"The service principal (" + clientID + ") does not have access to this workspace.\n" +
		"Add it to the workspace as a Member or Admin."
}
