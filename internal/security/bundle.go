package security

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// ErrNoCertificates is returned when the CA input holds no PEM certificates.
var ErrNoCertificates = errors.New("no PEM certificates found")

// Bundle is a set of extra trust anchors supplied through the CA_FILE input.
type Bundle struct {
	Certificates []*x509.Certificate
	// Source is "inline" for pasted PEM text, otherwise the file it was read from.
	Source string
}

// LoadCABundle reads custom trust from input, which is either inline PEM text
// or a path to a PEM file ("~" is expanded). An empty input yields a nil bundle.
// Certificates that are not CAs are kept but a warning is logged, since they
// cannot anchor a chain.
func LoadCABundle(input string, logger *zap.Logger) (*Bundle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	data := []byte(input)
	source := "inline"
	if !strings.Contains(input, "-----BEGIN") {
		path, err := homedir.Expand(input)
		if err != nil {
			return nil, fmt.Errorf("failed to expand CA file path %q: %w", input, err)
		}
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		source = path
	}

	certs, err := parseCertificates(data)
	if err != nil {
		return nil, fmt.Errorf("unable to load certificate(s) from CA_FILE input: %w", err)
	}

	bundle := &Bundle{Certificates: certs, Source: source}
	for i, cert := range certs {
		logger.Debug("Loaded custom certificate",
			zap.Int("index", i),
			zap.String("subject", cert.Subject.String()),
			zap.Bool("is_ca_cert", isCA(cert)))
	}
	if !bundle.HasCA() {
		logger.Warn("None of the provided certificates are CA certificates. Only CA certificates can be used for custom trust.")
	}
	logger.Info("Loaded custom CA certificate(s)", zap.Int("count", len(certs)), zap.String("source", source))

	return bundle, nil
}

// HasCA reports whether at least one certificate in the bundle is a CA.
func (b *Bundle) HasCA() bool {
	for _, cert := range b.Certificates {
		if isCA(cert) {
			return true
		}
	}
	return false
}

// Pool returns the system roots extended with the bundle. If the system pool
// is unavailable the bundle alone is trusted.
func (b *Bundle) Pool() *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	for _, cert := range b.Certificates {
		pool.AddCert(cert)
	}
	return pool
}

func isCA(cert *x509.Certificate) bool {
	return cert.BasicConstraintsValid && cert.IsCA
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
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
			return nil, fmt.Errorf("certificate[%d]: %w", len(certs), err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, ErrNoCertificates
	}
	return certs, nil
}
