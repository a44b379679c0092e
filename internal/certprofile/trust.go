package certprofile

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// trustConfig is the YAML shape of a trust-anchor file:
//
//	anchors:
//	  - roots/truepic-root.pem
//	  - roots/adobe-root.pem
//
// Paths are resolved relative to the config file.
type trustConfig struct {
	Anchors []string `yaml:"anchors"`
}

// LoadTrustFile reads a YAML trust configuration and parses every referenced
// PEM file into trust-anchor certificates.
func LoadTrustFile(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trust config: %w", err)
	}
	var cfg trustConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing trust config: %w", err)
	}
	if len(cfg.Anchors) == 0 {
		return nil, fmt.Errorf("trust config %s lists no anchors", path)
	}
	base := filepath.Dir(path)
	var anchors []*x509.Certificate
	for _, ref := range cfg.Anchors {
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(base, ref)
		}
		certs, err := ParseCertificatesPEM(ref)
		if err != nil {
			return nil, err
		}
		anchors = append(anchors, certs...)
	}
	return anchors, nil
}

// ParseCertificatesPEM parses all CERTIFICATE blocks from a PEM file.
func ParseCertificatesPEM(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading certificate file: %w", err)
	}
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
			return nil, fmt.Errorf("parsing certificate in %s: %w", path, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return certs, nil
}
