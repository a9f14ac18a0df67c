// Package tlsroots holds the TLS trust material for LockScope: the CA
// pool the CLI verifies agents against, and the watcher that hot-swaps
// the agent's serving certificate when the files on disk change.
package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCerts is returned when PEM data carries no CERTIFICATE blocks.
var ErrNoCerts = errors.New("tlsroots: no certificates in PEM data")

// Pool is a set of trusted root certificates. The zero value is not
// usable; construct with NewPool.
type Pool struct {
	roots *x509.CertPool
}

// NewPool returns a pool seeded with the system roots. Systems without
// an accessible root store yield an empty pool rather than an error,
// so a later AddCertFile still works.
func NewPool() (*Pool, error) {
	roots, err := x509.SystemCertPool()
	if err != nil {
		roots = x509.NewCertPool()
	}
	return &Pool{roots: roots}, nil
}

// AddCertFile reads a PEM file and adds every certificate in it.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read %s: %w", path, err)
	}
	if err := p.AddCertPEM(data); err != nil {
		return fmt.Errorf("tlsroots: %s: %w", path, err)
	}
	return nil
}

// AddCertPEM adds every CERTIFICATE block in pemData to the pool.
func (p *Pool) AddCertPEM(pemData []byte) error {
	added := 0
	for {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("parse certificate: %w", err)
		}
		p.roots.AddCert(cert)
		added++
	}
	if added == 0 {
		return ErrNoCerts
	}
	return nil
}

// Roots returns the underlying x509 pool for use in verify options.
func (p *Pool) Roots() *x509.CertPool {
	return p.roots
}

// TLSConfig returns a client TLS config trusting this pool.
func (p *Pool) TLSConfig() *tls.Config {
	return &tls.Config{
		RootCAs:    p.roots,
		MinVersion: tls.VersionTLS12,
	}
}
