// Package signer signs repository metadata
package signer

// Signer signs Release files
type Signer interface {
	// SignCleartext wraps data in a cleartext signature (InRelease)
	SignCleartext(data []byte) ([]byte, error)

	// SignDetached creates an armored detached signature (Release.gpg)
	SignDetached(data []byte) ([]byte, error)
}
