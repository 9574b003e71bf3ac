package accounts

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"reeltrack/models"
)

// brokenReadFs fails every open, simulating a registry file that exists but
// cannot be read (permissions, transient I/O).
type brokenReadFs struct {
	afero.Fs
	err error
}

func (f *brokenReadFs) Open(name string) (afero.File, error) {
	return nil, f.err
}

func newTestService(t *testing.T) (*Service, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	svc, err := NewService(fs, "/data")
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc, fs
}

func TestBootstrapAdminAccount(t *testing.T) {
	svc, _ := newTestService(t)

	admin, ok := svc.GetByUsername(models.AdminUsername)
	if !ok {
		t.Fatalf("expected bootstrap admin account")
	}
	if !admin.IsAdmin {
		t.Fatalf("bootstrap account should be admin")
	}
	if admin.PasswordHash == "" {
		t.Fatalf("bootstrap account should have a password hash")
	}
}

func TestUnreadableRegistryIsNotOverwritten(t *testing.T) {
	fs := afero.NewMemMapFs()
	seeded, err := NewService(fs, "/data")
	if err != nil {
		t.Fatalf("failed to seed registry: %v", err)
	}
	if _, err := seeded.Create("alice", "long-enough", "", ""); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}

	// A failed read must surface, not masquerade as a fresh install.
	broken := &brokenReadFs{Fs: fs, err: errors.New("permission denied")}
	if _, err := NewService(broken, "/data"); err == nil {
		t.Fatalf("expected an error when the registry cannot be read")
	}

	raw, err := afero.ReadFile(fs, "/data/accounts.json")
	if err != nil {
		t.Fatalf("registry file went missing: %v", err)
	}
	if !strings.Contains(string(raw), "alice") {
		t.Fatalf("existing accounts were overwritten: %s", raw)
	}
}

func TestCreateAndVerify(t *testing.T) {
	svc, _ := newTestService(t)

	account, err := svc.Create("Alice", "correct-horse", "Alice", "alice@example.com")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if account.Username != "alice" {
		t.Fatalf("username should be lowercased, got %q", account.Username)
	}

	if _, ok := svc.Verify("alice", "correct-horse"); !ok {
		t.Fatalf("expected verification to succeed")
	}
	if _, ok := svc.Verify("alice", "wrong-password"); ok {
		t.Fatalf("expected verification to fail with wrong password")
	}
	if _, ok := svc.Verify("ALICE ", "correct-horse"); !ok {
		t.Fatalf("verification should normalise the username")
	}
}

func TestCreateRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Create("bob", "long-enough", "", ""); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Create("BOB", "another-pass", "", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.Create("carol", "short", "", ""); err == nil {
		t.Fatalf("expected short password to be rejected")
	}
	if _, err := svc.Create("", "long-enough", "", ""); err == nil {
		t.Fatalf("expected empty username to be rejected")
	}
}

func TestRegistrySurvivesReload(t *testing.T) {
	svc, fs := newTestService(t)

	created, err := svc.Create("dave", "long-enough", "Dave", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	reloaded, err := NewService(fs, "/data")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	account, ok := reloaded.Get(created.ID)
	if !ok {
		t.Fatalf("account lost across reload")
	}
	if account.DisplayName != "Dave" {
		t.Fatalf("unexpected display name %q", account.DisplayName)
	}
	if _, ok := reloaded.Verify("dave", "long-enough"); !ok {
		t.Fatalf("password hash lost across reload")
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create("erin", "long-enough", "", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.UpdateProfile(created.ID, "Erin", "dark")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.DisplayName != "Erin" || updated.Theme != "dark" {
		t.Fatalf("unexpected profile %+v", updated)
	}

	// Empty fields leave the current values alone.
	updated, err = svc.UpdateProfile(created.ID, "", "")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.DisplayName != "Erin" || updated.Theme != "dark" {
		t.Fatalf("empty update should not clear fields, got %+v", updated)
	}

	if _, err := svc.UpdateProfile("missing", "X", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteProtectsAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	admin, _ := svc.GetByUsername(models.AdminUsername)
	if err := svc.Delete(admin.ID); err == nil {
		t.Fatalf("admin account must not be deletable")
	}

	created, err := svc.Create("frank", "long-enough", "", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.Delete(created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := svc.Get(created.ID); ok {
		t.Fatalf("account should be gone after delete")
	}
}

func TestPublicStripsPasswordHash(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create("grace", "long-enough", "", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Public().PasswordHash != "" {
		t.Fatalf("public view must not carry the password hash")
	}
}
