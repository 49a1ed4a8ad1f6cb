package config

import (
	"os"
	"path/filepath"
	"powerbi-insight/utils"

	"gopkg.in/yaml.v3"
)

// PowerBIConfig décrit le tenant, le workspace et le rapport embarqué.
// Le rapport (report_id) est fixe : seul le dataset auquel il est lié change.
type PowerBIConfig struct {
	AuthURL      string `yaml:"auth_url"`  // base OAuth2 (login.microsoftonline.com)
	APIURL       string `yaml:"api_url"`   // base API REST (api.powerbi.com/v1.0/myorg)
	EmbedURL     string `yaml:"embed_url"` // base embed (app.powerbi.com)
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	WorkspaceID  string `yaml:"workspace_id"`
	ReportID     string `yaml:"report_id"`

	DatasetName string `yaml:"dataset_name"` // nom logique du dataset poussé
	TableName   string `yaml:"table_name"`

	TokenMarginSeconds int    `yaml:"token_margin_seconds"` // marge avant expiration du token
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
	AccessLevel        string `yaml:"access_level"` // "Edit" ou "View"
	AllowSaveAs        bool   `yaml:"allow_save_as"`
}

func LoadPowerBIConfig(file string) (*PowerBIConfig, error) {
	var cfg PowerBIConfig
	root := utils.GetProjectRoot()
	cfgPath := filepath.Join(root, file)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (c *PowerBIConfig) ApplyDefaults() {
	if c.AuthURL == "" {
		c.AuthURL = "https://login.microsoftonline.com"
	}
	if c.APIURL == "" {
		c.APIURL = "https://api.powerbi.com/v1.0/myorg"
	}
	if c.EmbedURL == "" {
		c.EmbedURL = "https://app.powerbi.com"
	}
	if c.DatasetName == "" {
		c.DatasetName = "User Uploaded Data"
	}
	if c.TableName == "" {
		c.TableName = "Analytics"
	}
	if c.TokenMarginSeconds <= 0 {
		c.TokenMarginSeconds = 60
	}
	if c.HTTPTimeoutSeconds <= 0 {
		c.HTTPTimeoutSeconds = 30
	}
	if c.AccessLevel == "" {
		// l'embed se fait en édition avec save-as, comme le dashboard d'origine
		c.AccessLevel = "Edit"
		c.AllowSaveAs = true
	}
}
