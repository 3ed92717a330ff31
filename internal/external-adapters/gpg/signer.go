package gpg

import (
	"errors"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// SignatureSuffix is appended to an artifact path to name its signature
const SignatureSuffix = ".asc"

// ErrEncryptedKey is returned for passphrase protected signing keys
var ErrEncryptedKey = errors.New("signing key is passphrase protected")

// Signer writes armored detached signatures with one private key
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner creates a signer for an entity holding a decrypted private key
func NewSigner(entity *openpgp.Entity) (*Signer, error) {
	if entity == nil || entity.PrivateKey == nil {
		return nil, fmt.Errorf("entity has no private key")
	}
	if entity.PrivateKey.Encrypted {
		return nil, ErrEncryptedKey
	}
	return &Signer{entity: entity}, nil
}

// NewSignerFromFile loads the first private key of an armored keyring file
func NewSignerFromFile(keyPath string) (*Signer, error) {
	//nolint:gosec // G304: keyPath is the operator supplied signing key
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	keys, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}
	for _, e := range keys {
		if e.PrivateKey != nil {
			return NewSigner(e)
		}
	}
	return nil, fmt.Errorf("no private key found in %s", keyPath)
}

// KeyID returns the signing key id in hex
func (s *Signer) KeyID() string {
	return s.entity.PrimaryKey.KeyIdString()
}

// SignFile writes <path>.asc and returns its location
func (s *Signer) SignFile(path string) (string, error) {
	//nolint:gosec // G304: path is a report artifact produced by this run
	data, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer data.Close()

	sigPath := path + SignatureSuffix
	//nolint:gosec // G304: signature lives next to the artifact
	out, err := os.OpenFile(sigPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create signature file: %w", err)
	}

	if err := openpgp.ArmoredDetachSign(out, s.entity, data, nil); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("failed to sign %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write signature file: %w", err)
	}
	return sigPath, nil
}
