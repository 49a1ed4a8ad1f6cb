package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"powerbi-insight/auth"
	"powerbi-insight/utils"

	"gopkg.in/yaml.v3"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "add":
		if len(os.Args) < 3 {
			fmt.Println("Usage: userctl add <username>")
			os.Exit(1)
		}
		addUser(os.Args[2])
	case "approve":
		if len(os.Args) < 3 {
			fmt.Println("Usage: userctl approve <username>")
			os.Exit(1)
		}
		setStatus(os.Args[2], auth.StatusApproved)
	case "disable":
		if len(os.Args) < 3 {
			fmt.Println("Usage: userctl disable <username>")
			os.Exit(1)
		}
		setStatus(os.Args[2], auth.StatusDisabled)
	case "pending":
		listPending()
	case "list":
		listUsers()
	default:
		usage()
	}
}

func usage() {
	fmt.Println(`Usage: userctl [add|approve|disable|pending|list] <username>

add <username>       : Ajoute un utilisateur interactif (mot de passe demandé)
approve <username>   : Valide un compte en attente
disable <username>   : Désactive un compte (statut disabled dans users.yaml)
pending              : Liste les comptes en attente de validation
list                 : Liste tous les utilisateurs`)
}

// Demande un mot de passe à l'admin (masqué si possible)
func promptPassword() (string, error) {
	pass, err := utils.PromptPasswordTwice()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(pass), nil
}

func addUser(username string) {
	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		fmt.Println("Erreur lecture config.yaml :", err)
		os.Exit(1)
	}
	pass, err := promptPassword()
	if err != nil {
		fmt.Println("Erreur :", err)
		os.Exit(1)
	}
	salt := utils.RandomHex(8)
	hash, err := auth.ApplyHashMacro(cfg.Auth.HashMacro, pass, username, salt, cfg.Auth.Salt)
	if err != nil {
		fmt.Println("Erreur hashage :", err)
		os.Exit(1)
	}
	// les comptes créés en CLI sont approuvés d'office
	if err := auth.CreateUser(cfg.Auth.UserFile, username, hash, salt, auth.StatusApproved); err != nil {
		if err == auth.ErrUserExists {
			fmt.Println("L'utilisateur existe déjà.")
		} else {
			fmt.Println("Erreur écriture :", err)
		}
		os.Exit(1)
	}
	fmt.Print("Est-ce un administrateur ? (y/N) : ")
	var rep string
	fmt.Scanln(&rep)
	if rep == "y" || rep == "Y" || rep == "oui" || rep == "O" {
		uf, err := auth.LoadUsers(cfg.Auth.UserFile)
		if err == nil {
			info := uf.Users[username]
			info.Admin = true
			uf.Users[username] = info
			saveUsers(cfg.Auth.UserFile, uf)
		}
	}
	fmt.Println("Utilisateur ajouté.")
}

func setStatus(username, status string) {
	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		fmt.Println("Erreur lecture config.yaml :", err)
		os.Exit(1)
	}
	if err := auth.SetStatus(cfg.Auth.UserFile, username, status); err != nil {
		if err == auth.ErrUserNotFound {
			fmt.Println("Utilisateur non trouvé.")
		} else {
			fmt.Println("Erreur :", err)
		}
		os.Exit(1)
	}
	fmt.Printf("Utilisateur %s : statut %s.\n", username, status)
}

func listPending() {
	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		fmt.Println("Erreur lecture config.yaml :", err)
		os.Exit(1)
	}
	pending, err := auth.PendingUsers(cfg.Auth.UserFile)
	if err != nil {
		fmt.Println("Erreur lecture users.yaml :", err)
		os.Exit(1)
	}
	if len(pending) == 0 {
		fmt.Println("Aucun compte en attente.")
		return
	}
	fmt.Println("Comptes en attente :")
	for _, u := range pending {
		fmt.Println("- " + u)
	}
}

func listUsers() {
	cfg, err := auth.LoadConfig("config.yaml")
	if err != nil {
		fmt.Println("Erreur lecture config.yaml :", err)
		os.Exit(1)
	}
	users, err := auth.LoadUsers(cfg.Auth.UserFile)
	if err != nil {
		fmt.Println("Erreur lecture users.yaml :", err)
		os.Exit(1)
	}
	fmt.Println("Utilisateurs enregistrés :")
	for u, info := range users.Users {
		role := "user"
		if info.Admin {
			role = "admin"
		}
		status := info.Status
		if status == "" {
			status = auth.StatusApproved
		}
		fmt.Printf("- %s [%s] (%s)\n", u, role, status)
	}
}

func saveUsers(usersFile string, users *auth.UsersFile) {
	out, err := yaml.Marshal(users)
	if err != nil {
		fmt.Println("Erreur yaml :", err)
		os.Exit(1)
	}
	if err := os.WriteFile(filepath.Join(utils.GetProjectRoot(), usersFile), out, 0600); err != nil {
		fmt.Println("Erreur écriture :", err)
		os.Exit(1)
	}
}
