package signer

import (
	"bytes"
	"crypto"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// GPGSigner implements Signer with an OpenPGP private key
type GPGSigner struct {
	entity *openpgp.Entity
	// key that signs both InRelease and Release.gpg, a subkey when the
	// keyring has a signing subkey
	signingKey *packet.PrivateKey
	config     *packet.Config
}

var _ Signer = (*GPGSigner)(nil)

// NewGPGSigner loads the first key of an armored or binary keyring file,
// decrypting it with passphrase when it is protected
func NewGPGSigner(keyPath, passphrase string) (*GPGSigner, error) {
	if keyPath == "" {
		return nil, fmt.Errorf("key path is empty")
	}

	keyFile, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer keyFile.Close()

	entityList, err := openpgp.ReadArmoredKeyRing(keyFile)
	if err != nil {
		if _, serr := keyFile.Seek(0, io.SeekStart); serr != nil {
			return nil, serr
		}
		entityList, err = openpgp.ReadKeyRing(keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entityList) == 0 {
		return nil, fmt.Errorf("no keys found in key file")
	}
	entity := entityList[0]

	if entity.PrivateKey == nil {
		return nil, fmt.Errorf("key %X has no private part", entity.PrimaryKey.Fingerprint)
	}

	if entity.PrivateKey.Encrypted {
		if passphrase == "" {
			return nil, fmt.Errorf("private key is encrypted and no passphrase was given")
		}
		if err := entity.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
			return nil, fmt.Errorf("failed to decrypt private key: %w", err)
		}
	}
	for _, subkey := range entity.Subkeys {
		if subkey.PrivateKey != nil && subkey.PrivateKey.Encrypted && passphrase != "" {
			if err := subkey.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
				return nil, fmt.Errorf("failed to decrypt subkey: %w", err)
			}
		}
	}

	config := &packet.Config{DefaultHash: crypto.SHA512}
	key, ok := entity.SigningKey(config.Now())
	if !ok || key.PrivateKey == nil {
		return nil, fmt.Errorf("key %X has no usable signing key", entity.PrimaryKey.Fingerprint)
	}
	config.SigningKeyId = key.PrivateKey.KeyId

	return &GPGSigner{
		entity:     entity,
		signingKey: key.PrivateKey,
		config:     config,
	}, nil
}

// SignCleartext creates a cleartext signed message
func (s *GPGSigner) SignCleartext(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := clearsign.Encode(&buf, s.signingKey, s.config)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	return buf.Bytes(), nil
}

// SignDetached creates an armored detached signature
func (s *GPGSigner) SignDetached(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), s.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create detached signature: %w", err)
	}

	return buf.Bytes(), nil
}
