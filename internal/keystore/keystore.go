// Package keystore loads signing identities (private key plus certificate
// chain) from PKCS#12 keystores or PEM files. Keystore types are sniffed by
// magic number; Java JKS/JCEKS stores are recognized and rejected with a
// conversion hint.
package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"os"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Keystore magic numbers.
const (
	magicJKS   = 0xfeedfeed
	magicJCEKS = 0xcececece
)

// Identity is a signing key with its certificate chain, signing certificate
// first and without the trust anchor.
type Identity struct {
	Key   crypto.Signer
	Chain []*x509.Certificate
}

// Load reads a keystore file, sniffing its type: JKS and JCEKS magics are
// rejected, everything else parses as PKCS#12.
func Load(path, password string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keystore: %w", err)
	}
	if len(data) >= 4 {
		switch binary.BigEndian.Uint32(data) {
		case magicJKS:
			return nil, fmt.Errorf("keystore %s is a JKS store; convert it to PKCS#12 (keytool -importkeystore -deststoretype pkcs12)", path)
		case magicJCEKS:
			return nil, fmt.Errorf("keystore %s is a JCEKS store; convert it to PKCS#12 (keytool -importkeystore -deststoretype pkcs12)", path)
		}
	}
	key, cert, cas, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#12 keystore: %w", err)
	}
	signer, err := asSigner(key)
	if err != nil {
		return nil, err
	}
	chain := append([]*x509.Certificate{cert}, cas...)
	chain = trimAnchor(chain)
	return &Identity{Key: signer, Chain: chain}, nil
}

// LoadPEM reads a PEM private key and a PEM certificate chain from separate
// files.
func LoadPEM(keyPath, certsPath string) (*Identity, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	signer, err := ParsePrivateKeyPEM(keyData)
	if err != nil {
		return nil, err
	}
	certData, err := os.ReadFile(certsPath)
	if err != nil {
		return nil, fmt.Errorf("reading certificate file: %w", err)
	}
	chain, err := ParseCertificatesPEM(certData)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no certificates in %s", certsPath)
	}
	return &Identity{Key: signer, Chain: trimAnchor(chain)}, nil
}

// trimAnchor drops the final certificate when the chain is longer than one
// and that certificate is self-signed: the trust anchor's certificate is not
// included in x5chain. A non-self-signed tail is kept.
func trimAnchor(chain []*x509.Certificate) []*x509.Certificate {
	if len(chain) > 1 {
		last := chain[len(chain)-1]
		if string(last.RawSubject) == string(last.RawIssuer) {
			return chain[:len(chain)-1]
		}
	}
	return chain
}

// ParsePrivateKeyPEM parses a PKCS#8, SEC1 or PKCS#1 private key.
func ParsePrivateKeyPEM(data []byte) (crypto.Signer, error) {
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		switch block.Type {
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parsing PKCS#8 key: %w", err)
			}
			return asSigner(key)
		case "EC PRIVATE KEY":
			key, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parsing EC key: %w", err)
			}
			return key, nil
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("parsing RSA key: %w", err)
			}
			return key, nil
		}
	}
	return nil, fmt.Errorf("no private key found in PEM data")
}

// ParseCertificatesPEM parses every CERTIFICATE block.
func ParseCertificatesPEM(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

func asSigner(key any) (crypto.Signer, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		return k, nil
	case *rsa.PrivateKey:
		return k, nil
	case ed25519.PrivateKey:
		return k, nil
	case crypto.Signer:
		return k, nil
	}
	return nil, fmt.Errorf("unsupported private key type %T", key)
}
