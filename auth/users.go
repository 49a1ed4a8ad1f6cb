package auth

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log"
	"os"
	"path/filepath"
	"powerbi-insight/utils"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Listen        string            `yaml:"listen"`
		Static        string            `yaml:"static"`
		StaticDefault string            `yaml:"static_default"`
		StaticAllowed []string          `yaml:"static_allowed"`
		LogDir        string            `yaml:"log_dir"`
		TemplateVars  map[string]string `yaml:"template_vars"`
	} `yaml:"server"`
	JWT struct {
		Secret            string `yaml:"secret"`
		ExpirationMinutes int    `yaml:"expiration_minutes"`
	} `yaml:"jwt"`
	Auth struct {
		UserBackend string `yaml:"user_backend"` // "file", "mysql", "postgres", "sqlite"
		UserFile    string `yaml:"user_file"`
		HashMacro   string `yaml:"hash_macro"`
		Salt        string `yaml:"salt"`
		DBDSN       string `yaml:"db_dsn"`
		UserRequest string `yaml:"user_request"` // ex: SELECT hash, salt, is_admin, status FROM users WHERE name = ?
		DBHashMacro string `yaml:"db_hash_macro"`
		// requêtes du workflow d'inscription/validation (backends DB)
		UserInsert       string `yaml:"user_insert"`        // INSERT ... (name, hash, salt, status)
		UserStatusUpdate string `yaml:"user_status_update"` // UPDATE users SET status = ? WHERE name = ?
		PendingRequest   string `yaml:"pending_request"`    // SELECT name FROM users WHERE status = 'pending'
	} `yaml:"auth"`
	Upload struct {
		MaxSizeMB   int `yaml:"max_size_mb"`
		PreviewRows int `yaml:"preview_rows"`
	} `yaml:"upload"`
	PowerBIFile string `yaml:"powerbi_file"` // défaut : powerbi.yaml
}

// Statuts du workflow de validation des comptes. Un Status vide dans
// users.yaml vaut "approved" (comptes créés à la main par userctl).
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDisabled = "disabled"
)

type UsersFile struct {
	Users map[string]UserInfo `yaml:"users"`
}

type UserInfo struct {
	Hash   string `yaml:"hash"`
	Salt   string `yaml:"salt"`
	Admin  bool   `yaml:"admin"`
	Status string `yaml:"status,omitempty"`
}

// Approved : le compte peut se connecter et uploader
func (u UserInfo) Approved() bool {
	return u.Status == "" || u.Status == StatusApproved
}

func LoadConfig(file string) (*Config, error) {
	var cfg Config
	root := utils.GetProjectRoot()
	cfgPath := filepath.Join(root, file)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.PowerBIFile == "" {
		cfg.PowerBIFile = "powerbi.yaml"
	}
	if cfg.Upload.MaxSizeMB <= 0 {
		cfg.Upload.MaxSizeMB = 20
	}
	if cfg.Upload.PreviewRows <= 0 {
		cfg.Upload.PreviewRows = 10
	}
	return &cfg, nil
}

func LoadUsers(file string) (*UsersFile, error) {
	var uf UsersFile
	root := utils.GetProjectRoot()
	cfgPath := filepath.Join(root, file)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return nil, err
	}
	if uf.Users == nil {
		uf.Users = map[string]UserInfo{}
	}
	return &uf, nil
}

// Ex: "SELECT hash, salt, is_admin, status FROM users WHERE name = ?"
func GetUserFromDB(db *sql.DB, query, username string) (hash, salt string, isAdmin bool, status string, err error) {
	row := db.QueryRow(query, username)
	var adminVal interface{}
	var statusVal sql.NullString
	err = row.Scan(&hash, &salt, &adminVal, &statusVal)
	if err != nil {
		log.Println(err)
		return "", "", false, "", err
	}
	isAdmin = dbToBool(adminVal)
	status = statusVal.String
	return
}

func dbToBool(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case int:
		return val != 0
	case []uint8:
		s := string(val)
		return s == "1" || s == "t" || s == "T" || s == "true" || s == "TRUE"
	}
	return false
}

func ApplyHashMacro(macro, password, user, userSalt, globalSalt string) (string, error) {
	replace := func(s string) string {
		s = strings.ReplaceAll(s, "{password}", password)
		s = strings.ReplaceAll(s, "{user}", user)
		s = strings.ReplaceAll(s, "{salt}", userSalt)
		s = strings.ReplaceAll(s, "{globalsalt}", globalSalt)
		return s
	}
	macro = strings.TrimSpace(macro)
	if strings.HasPrefix(macro, "{sha256}") {
		plain := extractBetween(macro, "{sha256}(", ")")
		plain = replace(plain)
		return sha256Hash(plain), nil
	}
	if strings.HasPrefix(macro, "{sha1}") {
		plain := extractBetween(macro, "{sha1}(", ")")
		plain = replace(plain)
		return sha1Hash(plain), nil
	}
	if strings.HasPrefix(macro, "{md5}") {
		plain := extractBetween(macro, "{md5}(", ")")
		plain = replace(plain)
		return md5Hash(plain), nil
	}
	if strings.HasPrefix(macro, "{clear}") {
		plain := extractBetween(macro, "{clear}(", ")")
		plain = replace(plain)
		return plain, nil
	}
	return "", errors.New("unsupported hash macro")
}

func extractBetween(str, start, end string) string {
	a := strings.Index(str, start)
	if a == -1 {
		return ""
	}
	a += len(start)
	b := strings.LastIndex(str, end)
	if b == -1 || b <= a {
		return ""
	}
	return str[a:b]
}

func sha256Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
func sha1Hash(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}
func md5Hash(s string) string {
	h := md5.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}
