// Package certs implements the certificate provisioner backing the TLS
// dispatcher. It maintains a local certificate authority under the
// configuration directory and issues per-domain leaf certificates on demand,
// skipping regeneration when the PEM files for a domain already exist.
package certs

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"log"
	"math/big"
	"os"
	"path"
	"time"

	"github.com/google/martian/mitm"

	"github.com/wharflabs/wharf/domain"
)

const (
	caCertFile = "wharf_ca_cert.pem" // CA Certificate File Name
	caKeyFile  = "wharf_ca_key.pem"  // CA Private Key File Name
	certsDir   = "certs"             // Per-domain certificate directory
)

var _ domain.Provisioner = (*Manager)(nil)

// Manager owns the local certificate authority and the per-domain
// certificate files underneath the configuration directory.
type Manager struct {
	configDir string
	caCert    *x509.Certificate
	caKey     crypto.Signer
}

// NewManager loads the certificate authority from configDir, creating a new
// one when none exists yet, and prepares the per-domain certificate
// directory.
func NewManager(configDir string) (*Manager, error) {
	var x509c *x509.Certificate
	var priv interface{}
	var err error

	caCertPath := path.Join(configDir, caCertFile)
	if _, err = os.Stat(caCertPath); os.IsNotExist(err) {
		log.Println("[*] CA certificate does not exist, creating a new one")
		x509c, priv, err = mitm.NewAuthority("Wharf", "Wharf Development CA", 365*3*24*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("creating new authority : %w", err)
		}

		if err := saveCertAndKey(x509c, priv, configDir); err != nil {
			return nil, fmt.Errorf("saving ca cert and key to disk: %w", err)
		}
	} else {
		x509c, priv, err = loadCertAndKey(configDir)
		if err != nil {
			return nil, fmt.Errorf("loading ca cert and key from disk: %w", err)
		}
	}

	signer, ok := priv.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("ca private key of type %T cannot sign certificates", priv)
	}

	if err := os.MkdirAll(path.Join(configDir, certsDir), 0700); err != nil {
		return nil, fmt.Errorf("creating certs dir: %w", err)
	}

	return &Manager{
		configDir: configDir,
		caCert:    x509c,
		caKey:     signer,
	}, nil
}

// CACertificate returns the authority certificate, e.g. for serving it to
// browsers or reporting its SPKI hash.
func (m *Manager) CACertificate() *x509.Certificate {
	return m.caCert
}

// EnsureCertificate produces a certificate/key pair for the given domain and
// returns the paths to both PEM files. When both files already exist the
// existing paths are returned without invoking the signer again.
func (m *Manager) EnsureCertificate(domain string) (string, string, error) {
	certPath := path.Join(m.configDir, certsDir, domain+".crt")
	keyPath := path.Join(m.configDir, certsDir, domain+".key")

	if fileExists(certPath) && fileExists(keyPath) {
		return certPath, keyPath, nil
	}

	if err := m.issueLeaf(domain, certPath, keyPath); err != nil {
		return "", "", fmt.Errorf("issuing certificate for %s : %w", domain, err)
	}

	return certPath, keyPath, nil
}

// issueLeaf signs a new leaf certificate for the domain with the authority
// and writes the PEM pair to disk.
func (m *Manager) issueLeaf(domain, certPath, keyPath string) error {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generating leaf key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generating serial number: %w", err)
	}

	notBefore := time.Now().Add(-time.Hour)
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Wharf Local Development"},
			CommonName:   domain,
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{domain},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, m.caCert, &priv.PublicKey, m.caKey)
	if err != nil {
		return fmt.Errorf("signing leaf certificate: %w", err)
	}

	keyDer, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("marshalling leaf key: %w", err)
	}

	if err := writePEM(certPath, "CERTIFICATE", derBytes); err != nil {
		return err
	}
	if err := writePEM(keyPath, "PRIVATE KEY", keyDer); err != nil {
		return err
	}

	return nil
}

// IsCATrusted reports whether the authority certificate verifies against the
// system root pool. Failure to read the pool counts as untrusted.
func (m *Manager) IsCATrusted() bool {
	systemPool, err := x509.SystemCertPool()
	if err != nil {
		return false
	}

	_, err = m.caCert.Verify(x509.VerifyOptions{Roots: systemPool})
	return err == nil
}

// SPKIHash computes the SHA-256 hash of the authority certificate's Subject
// Public Key Info and returns it as a base64-encoded string.
func (m *Manager) SPKIHash() string {
	spkiHash := sha256.Sum256(m.caCert.RawSubjectPublicKeyInfo)
	return base64.StdEncoding.EncodeToString(spkiHash[:])
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func writePEM(p, blockType string, der []byte) error {
	out, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening %s for writing: %w", p, err)
	}
	defer out.Close()
	if err := pem.Encode(out, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		return fmt.Errorf("writing pem data to %s: %w", p, err)
	}
	return nil
}

func saveCertAndKey(cert *x509.Certificate, priv interface{}, configDir string) error {
	privBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return fmt.Errorf("unable to marshal private key: %w", err)
	}
	if err := writePEM(path.Join(configDir, caCertFile), "CERTIFICATE", cert.Raw); err != nil {
		return err
	}
	if err := writePEM(path.Join(configDir, caKeyFile), "PRIVATE KEY", privBytes); err != nil {
		return err
	}
	return nil
}

func loadCertAndKey(configDir string) (*x509.Certificate, interface{}, error) {
	certPEM, err := os.ReadFile(path.Join(configDir, caCertFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read cert file: %w", err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, nil, fmt.Errorf("failed to decode cert PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	keyPEM, err := os.ReadFile(path.Join(configDir, caKeyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read key file: %w", err)
	}
	block, _ = pem.Decode(keyPEM)
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, nil, fmt.Errorf("failed to decode key PEM block")
	}
	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return cert, priv, nil
}
