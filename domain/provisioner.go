package domain

// Provisioner defines the certificate tooling consumed by the TLS dispatcher.
// Implementations are expected to be idempotent: when certificate material
// for a domain already exists on disk, EnsureCertificate returns the existing
// paths without regenerating anything.
type Provisioner interface {
	// EnsureCertificate produces (or finds) a certificate/key pair for the
	// given fully-qualified domain and returns the paths to both PEM files.
	EnsureCertificate(domain string) (certPath string, keyPath string, err error)

	// IsCATrusted reports whether the local certificate authority is
	// established and trusted by the system. Checked once at proxy startup.
	IsCATrusted() bool
}
