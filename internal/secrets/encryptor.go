package secrets

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
)

// AgeEncryptor encrypts to and decrypts with a set of X25519 identities.
type AgeEncryptor struct {
	identities []age.Identity
	recipients []age.Recipient
}

// NewAgeEncryptor loads identities from an age key file.
func NewAgeEncryptor(keyPath string) (*AgeEncryptor, error) {
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("open age key: %w", err)
	}
	defer f.Close()
	return ParseAgeEncryptor(f)
}

// ParseAgeEncryptor reads identities in age key file format.
func ParseAgeEncryptor(r io.Reader) (*AgeEncryptor, error) {
	ids, err := age.ParseIdentities(r)
	if err != nil {
		return nil, fmt.Errorf("parse age identities: %w", err)
	}
	enc := &AgeEncryptor{identities: ids}
	for _, id := range ids {
		if x, ok := id.(*age.X25519Identity); ok {
			enc.recipients = append(enc.recipients, x.Recipient())
		}
	}
	if len(enc.recipients) == 0 {
		return nil, fmt.Errorf("age key file has no X25519 identity")
	}
	return enc, nil
}

// GenerateKey writes a fresh identity to path and returns its public
// recipient string. An existing file is never overwritten.
func GenerateKey(path string) (string, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generate identity: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create key file: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "# public key: %s\n%s\n", id.Recipient(), id)
	if err != nil {
		return "", fmt.Errorf("write key file: %w", err)
	}
	return id.Recipient().String(), nil
}

// Encrypt seals plaintext for every loaded identity.
func (e *AgeEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, e.recipients...)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decrypt opens ciphertext with the loaded identities.
func (e *AgeEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(ciphertext), e.identities...)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
