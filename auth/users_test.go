package auth

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractBetween(t *testing.T) {
	str := "{sha256}(foo{password}{user}{salt}{globalsalt})"
	got := extractBetween(str, "{sha256}(", ")")
	want := "foo{password}{user}{salt}{globalsalt}"
	if got != want {
		t.Errorf("extractBetween failed: got %q, want %q", got, want)
	}

	// Test missing start
	got = extractBetween(str, "{sha1}(", ")")
	if got != "" {
		t.Errorf("extractBetween should return empty string if start not found")
	}

	// Test missing end
	got = extractBetween("{sha256}(foo", "{sha256}(", ")")
	if got != "" {
		t.Errorf("extractBetween should return empty string if end not found")
	}
}

func TestSha256Hash(t *testing.T) {
	s := "hello"
	expected := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if sha256Hash(s) != expected {
		t.Errorf("sha256Hash failed: got %q, want %q", sha256Hash(s), expected)
	}
}

func TestSha1Hash(t *testing.T) {
	s := "hello"
	expected := "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
	if sha1Hash(s) != expected {
		t.Errorf("sha1Hash failed: got %q, want %q", sha1Hash(s), expected)
	}
}

func TestMd5Hash(t *testing.T) {
	s := "hello"
	expected := "5d41402abc4b2a76b9719d911017c592"
	if md5Hash(s) != expected {
		t.Errorf("md5Hash failed: got %q, want %q", md5Hash(s), expected)
	}
}

func TestApplyHashMacro(t *testing.T) {
	password := "pass"
	user := "bob"
	userSalt := "usalt"
	globalSalt := "gsalt"

	// SHA256
	hash, err := ApplyHashMacro("{sha256}({password}{user}{salt}{globalsalt})", password, user, userSalt, globalSalt)
	if err != nil {
		t.Fatalf("ApplyHashMacro sha256 failed: %v", err)
	}
	expected := sha256Hash(password + user + userSalt + globalSalt)
	if hash != expected {
		t.Errorf("ApplyHashMacro sha256: got %q, want %q", hash, expected)
	}

	// SHA1
	hash, err = ApplyHashMacro("{sha1}({password}{user})", password, user, userSalt, globalSalt)
	if err != nil {
		t.Fatalf("ApplyHashMacro sha1 failed: %v", err)
	}
	expected = sha1Hash(password + user)
	if hash != expected {
		t.Errorf("ApplyHashMacro sha1: got %q, want %q", hash, expected)
	}

	// MD5
	hash, err = ApplyHashMacro("{md5}({user}{salt})", password, user, userSalt, globalSalt)
	if err != nil {
		t.Fatalf("ApplyHashMacro md5 failed: %v", err)
	}
	expected = md5Hash(user + userSalt)
	if hash != expected {
		t.Errorf("ApplyHashMacro md5: got %q, want %q", hash, expected)
	}

	// Clear
	clear, err := ApplyHashMacro("{clear}({password})", password, user, userSalt, globalSalt)
	if err != nil {
		t.Fatalf("ApplyHashMacro clear failed: %v", err)
	}
	if clear != password {
		t.Errorf("ApplyHashMacro clear: got %q, want %q", clear, password)
	}

	// Unsupported
	_, err = ApplyHashMacro("{unknown}({password})", password, user, userSalt, globalSalt)
	if err == nil {
		t.Error("ApplyHashMacro should fail for unsupported macro")
	}
}

func TestUserInfoApproved(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{"", true},
		{StatusApproved, true},
		{StatusPending, false},
		{StatusDisabled, false},
	}
	for _, c := range cases {
		u := UserInfo{Status: c.status}
		if u.Approved() != c.want {
			t.Errorf("Approved() with status %q: got %v, want %v", c.status, u.Approved(), c.want)
		}
	}
}

func withTempRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := os.Getenv("POWERBI_INSIGHT_ROOT")
	os.Setenv("POWERBI_INSIGHT_ROOT", dir)
	t.Cleanup(func() { os.Setenv("POWERBI_INSIGHT_ROOT", old) })
	return dir
}

func TestApprovalWorkflow_File(t *testing.T) {
	withTempRoot(t)
	file := "users.yaml"

	if err := CreateUser(file, "carol", "h1", "s1", StatusPending); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := CreateUser(file, "carol", "h1", "s1", StatusPending); err != ErrUserExists {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}

	pending, err := PendingUsers(file)
	if err != nil {
		t.Fatalf("PendingUsers failed: %v", err)
	}
	if len(pending) != 1 || pending[0] != "carol" {
		t.Errorf("Expected pending [carol], got %v", pending)
	}

	if err := SetStatus(file, "carol", StatusApproved); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	uf, err := LoadUsers(file)
	if err != nil {
		t.Fatalf("LoadUsers failed: %v", err)
	}
	if !uf.Users["carol"].Approved() {
		t.Errorf("Expected carol approved, got %+v", uf.Users["carol"])
	}

	pending, _ = PendingUsers(file)
	if len(pending) != 0 {
		t.Errorf("Expected no pending users, got %v", pending)
	}

	if err := SetStatus(file, "nobody", StatusApproved); err != ErrUserNotFound {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestPendingUsers_NoFile(t *testing.T) {
	withTempRoot(t)
	pending, err := PendingUsers("users.yaml")
	if err != nil {
		t.Fatalf("PendingUsers on missing file failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected empty pending list, got %v", pending)
	}
}

func TestLoadUsers_Status(t *testing.T) {
	dir := withTempRoot(t)
	data := "users:\n  alice:\n    hash: h\n    salt: s\n    admin: true\n  dave:\n    hash: h2\n    salt: s2\n    status: pending\n"
	if err := os.WriteFile(filepath.Join(dir, "users.yaml"), []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	uf, err := LoadUsers("users.yaml")
	if err != nil {
		t.Fatalf("LoadUsers failed: %v", err)
	}
	if !uf.Users["alice"].Approved() || !uf.Users["alice"].Admin {
		t.Errorf("Expected alice admin+approved, got %+v", uf.Users["alice"])
	}
	if uf.Users["dave"].Status != StatusPending {
		t.Errorf("Expected dave pending, got %+v", uf.Users["dave"])
	}
}
