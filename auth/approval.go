package auth

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"powerbi-insight/utils"

	"gopkg.in/yaml.v3"
)

// usersFileMu protège users.yaml contre les écritures concurrentes
// (signup et approbation admin peuvent arriver en même temps)
var usersFileMu sync.Mutex

var ErrUserExists = errors.New("user already exists")
var ErrUserNotFound = errors.New("user not found")

// CreateUser ajoute un compte dans users.yaml avec le statut demandé.
// Le hash est déjà calculé par l'appelant (ApplyHashMacro).
func CreateUser(file, username, hash, salt, status string) error {
	usersFileMu.Lock()
	defer usersFileMu.Unlock()

	uf, err := LoadUsers(file)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		uf = &UsersFile{Users: map[string]UserInfo{}}
	}
	if _, ok := uf.Users[username]; ok {
		return ErrUserExists
	}
	uf.Users[username] = UserInfo{Hash: hash, Salt: salt, Status: status}
	return saveUsersLocked(file, uf)
}

// SetStatus change le statut d'un compte existant (approved / disabled)
func SetStatus(file, username, status string) error {
	usersFileMu.Lock()
	defer usersFileMu.Unlock()

	uf, err := LoadUsers(file)
	if err != nil {
		return err
	}
	info, ok := uf.Users[username]
	if !ok {
		return ErrUserNotFound
	}
	info.Status = status
	uf.Users[username] = info
	return saveUsersLocked(file, uf)
}

// PendingUsers liste les comptes en attente de validation, triés
func PendingUsers(file string) ([]string, error) {
	usersFileMu.Lock()
	defer usersFileMu.Unlock()

	uf, err := LoadUsers(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for name, info := range uf.Users {
		if info.Status == StatusPending {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func saveUsersLocked(file string, uf *UsersFile) error {
	root := utils.GetProjectRoot()
	data, err := yaml.Marshal(uf)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, file), data, 0600)
}

// Variantes backend SQL : les requêtes viennent de la config
// (user_insert, user_status_update, pending_request)

func CreateUserDB(db *sql.DB, query, username, hash, salt, status string) error {
	if query == "" {
		return errors.New("user_insert not configured")
	}
	_, err := db.Exec(query, username, hash, salt, status)
	return err
}

func SetUserStatusDB(db *sql.DB, query, username, status string) error {
	if query == "" {
		return errors.New("user_status_update not configured")
	}
	res, err := db.Exec(query, status, username)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func PendingUsersDB(db *sql.DB, query string) ([]string, error) {
	if query == "" {
		return nil, errors.New("pending_request not configured")
	}
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}
