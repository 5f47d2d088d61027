package link

import (
	"crypto/tls"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cointhing/cointhing/internal/logging"
)

// NewTLSConfig loads a certificate and key for serving the link as wss://.
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	logging.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		VerifyConnection: func(cs tls.ConnectionState) error {
			logging.Debug("TLS handshake",
				zap.String("server_name", cs.ServerName),
				zap.String("version", tls.VersionName(cs.Version)),
				zap.String("cipher_suite", tls.CipherSuiteName(cs.CipherSuite)),
			)
			return nil
		},
	}, nil
}

// DialOption configures the WebSocket dialer used by Dial.
type DialOption func(*websocket.Dialer)

// WithTLSConfig sets the client TLS configuration for wss:// addresses.
func WithTLSConfig(cfg *tls.Config) DialOption {
	return func(d *websocket.Dialer) {
		d.TLSClientConfig = cfg
	}
}
