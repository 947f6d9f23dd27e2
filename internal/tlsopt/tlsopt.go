// Package tlsopt wraps the adapter's plaintext TCP listener with TLS when an
// operator configures a certificate and key file. Only manual (cert-file)
// mode is wired; ACME issuance is not available in this build, so
// internal/config rejects tls.mode=acme at load time rather than silently
// falling back to plaintext.
package tlsopt

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/c360/shdr-adapter/errors"
	"github.com/c360/shdr-adapter/pkg/security"
	"github.com/c360/shdr-adapter/pkg/tlsutil"
)

// Config is the subset of internal/config.TLSConfig this package needs. It
// is declared independently because internal/config imports this package,
// so importing internal/config here would create a cycle.
type Config struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// Wrap returns ln unchanged if cfg disables TLS, otherwise wraps it with a
// tls.Listener built from the configured certificate and key.
func Wrap(ln net.Listener, cfg Config) (net.Listener, error) {
	if !cfg.Enabled {
		return ln, nil
	}

	tlsConfig, err := tlsutil.LoadServerTLSConfig(security.ServerTLSConfig{
		Enabled:    true,
		Mode:       "manual",
		CertFile:   cfg.CertFile,
		KeyFile:    cfg.KeyFile,
		MinVersion: "1.2",
	})
	if err != nil {
		return nil, errors.WrapFatal(err, "tlsopt", "Wrap", fmt.Sprintf("load cert %s / key %s", cfg.CertFile, cfg.KeyFile))
	}

	return tls.NewListener(ln, tlsConfig), nil
}
