package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestEncryptor(t *testing.T) (*AgeEncryptor, string) {
	t.Helper()
	keyPath := filepath.Join(t.TempDir(), "key.txt")
	recipient, err := GenerateKey(keyPath)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if recipient == "" {
		t.Fatal("expected recipient")
	}
	enc, err := NewAgeEncryptor(keyPath)
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	return enc, keyPath
}

func TestGenerateKey_NoOverwrite(t *testing.T) {
	_, keyPath := newTestEncryptor(t)
	if _, err := GenerateKey(keyPath); err == nil {
		t.Fatal("expected error when key file exists")
	}
}

func TestAgeEncryptor_RoundTrip(t *testing.T) {
	enc, _ := newTestEncryptor(t)
	ct, err := enc.Encrypt([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	pt, err := enc.Decrypt(ct)
	if err != nil {
		t.Fatal(err)
	}
	if string(pt) != "hello" {
		t.Fatalf("plaintext = %q", pt)
	}

	other, _ := newTestEncryptor(t)
	if _, err := other.Decrypt(ct); err == nil {
		t.Fatal("expected decrypt failure with a foreign identity")
	}
}

func TestManager_PutGetListDelete(t *testing.T) {
	enc, _ := newTestEncryptor(t)
	path := filepath.Join(t.TempDir(), "secrets.age")

	m, err := Open(path, enc)
	if err != nil {
		t.Fatalf("open missing file: %v", err)
	}
	if err := m.Put("COINGECKO_API_KEY", "cg-abc"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.Put("NOTE", `has "quotes" and spaces`); err != nil {
		t.Fatalf("put: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) == 0 || string(raw[:3]) != "age" {
		t.Fatalf("sealed file does not look like age output")
	}

	// Reopen from disk.
	m2, err := Open(path, enc)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if diff := cmp.Diff([]string{"COINGECKO_API_KEY", "NOTE"}, m2.List()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	v, err := m2.Get("NOTE")
	if err != nil || v != `has "quotes" and spaces` {
		t.Fatalf("Get(NOTE) = %q, %v", v, err)
	}

	if err := m2.Delete("NOTE"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m2.Delete("NOTE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
	if _, err := m2.Get("NOTE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}
}

func TestManager_LookupFallsBackToEnv(t *testing.T) {
	enc, _ := newTestEncryptor(t)
	m, err := Open(filepath.Join(t.TempDir(), "s.age"), enc)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Put("SHARED", "from-file"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHARED", "from-env")
	t.Setenv("ONLY_ENV", "env-value")

	if v, _ := m.Lookup("SHARED"); v != "from-file" {
		t.Errorf("SHARED = %q, want file value", v)
	}
	if v, ok := m.Lookup("ONLY_ENV"); !ok || v != "env-value" {
		t.Errorf("ONLY_ENV = %q, %v", v, ok)
	}
	if _, ok := m.Lookup("MCPGATE_TEST_UNSET_VAR"); ok {
		t.Error("expected miss for unset variable")
	}

	var nilManager *Manager
	if v, ok := nilManager.Lookup("ONLY_ENV"); !ok || v != "env-value" {
		t.Errorf("nil manager lookup = %q, %v", v, ok)
	}
}

func TestManager_PutRejectsBadName(t *testing.T) {
	enc, _ := newTestEncryptor(t)
	m, _ := Open(filepath.Join(t.TempDir(), "s.age"), enc)
	for _, name := range []string{"", "A=B", "has space"} {
		if err := m.Put(name, "v"); err == nil {
			t.Errorf("Put(%q) expected error", name)
		}
	}
}

func TestManager_PutAll(t *testing.T) {
	enc, _ := newTestEncryptor(t)
	path := filepath.Join(t.TempDir(), "s.age")
	m, err := Open(path, enc)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.PutAll(map[string]string{"GOOD": "1", "BAD NAME": "2"}); err == nil {
		t.Fatal("expected error for invalid name")
	}
	if len(m.List()) != 0 {
		t.Fatalf("partial write: %v", m.List())
	}

	if err := m.PutAll(map[string]string{"CG_KEY": "abc", "TENANT": "acme corp"}); err != nil {
		t.Fatalf("put all: %v", err)
	}
	reopened, err := Open(path, enc)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if diff := cmp.Diff([]string{"CG_KEY", "TENANT"}, reopened.List()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := reopened.Get("TENANT"); v != "acme corp" {
		t.Errorf("TENANT = %q", v)
	}
}
