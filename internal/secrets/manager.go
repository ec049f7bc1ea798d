package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// ErrNotFound is returned for keys absent from the sealed file.
var ErrNotFound = errors.New("secret not found")

// Manager holds variables from an age-sealed dotenv file. Lookups fall
// through to the process environment for names the file does not define.
type Manager struct {
	path      string
	encryptor *AgeEncryptor
	vars      map[string]string
}

// Open decrypts the sealed file at path. A missing file yields an empty
// manager so that `secret put` can create it.
func Open(path string, enc *AgeEncryptor) (*Manager, error) {
	m := &Manager{path: path, encryptor: enc, vars: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}
	if m.vars, err = m.decryptSecrets(data); err != nil {
		return nil, err
	}
	return m, nil
}

// Lookup resolves name from the sealed file, then the environment.
// It matches the auth.LookupFunc signature.
func (m *Manager) Lookup(name string) (string, bool) {
	if m != nil {
		if v, ok := m.vars[name]; ok {
			return v, true
		}
	}
	return os.LookupEnv(name)
}

// Get returns a secret defined in the sealed file.
func (m *Manager) Get(key string) (string, error) {
	v, ok := m.vars[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// List returns all secret key names (no values), sorted.
func (m *Manager) List() []string {
	keys := make([]string, 0, len(m.vars))
	for k := range m.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Put sets key and rewrites the sealed file.
func (m *Manager) Put(key, value string) error {
	if !validName(key) {
		return fmt.Errorf("invalid secret name %q", key)
	}
	m.vars[key] = value
	return m.save()
}

// PutAll sets every pair and rewrites the sealed file once. Nothing is
// written if any name is invalid.
func (m *Manager) PutAll(vars map[string]string) error {
	for k := range vars {
		if !validName(k) {
			return fmt.Errorf("invalid secret name %q", k)
		}
	}
	for k, v := range vars {
		m.vars[k] = v
	}
	return m.save()
}

func validName(key string) bool {
	return key != "" && !strings.ContainsAny(key, "= \t\n")
}

// Delete removes key and rewrites the sealed file.
func (m *Manager) Delete(key string) error {
	if _, ok := m.vars[key]; !ok {
		return ErrNotFound
	}
	delete(m.vars, key)
	return m.save()
}

func (m *Manager) save() error {
	encrypted, err := m.encryptSecrets(m.vars)
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, encrypted, 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace secrets file: %w", err)
	}
	return nil
}

// decryptSecrets opens the sealed blob and parses it as dotenv.
func (m *Manager) decryptSecrets(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return make(map[string]string), nil
	}
	plaintext, err := m.encryptor.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("decrypt secrets: %w", err)
	}
	vars, err := godotenv.Parse(bytes.NewReader(plaintext))
	if err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}
	return vars, nil
}

// encryptSecrets renders vars as dotenv and seals them.
func (m *Manager) encryptSecrets(vars map[string]string) ([]byte, error) {
	content, err := godotenv.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("marshal secrets: %w", err)
	}
	encrypted, err := m.encryptor.Encrypt([]byte(content + "\n"))
	if err != nil {
		return nil, fmt.Errorf("encrypt secrets: %w", err)
	}
	return encrypted, nil
}
