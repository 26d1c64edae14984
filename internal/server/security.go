package server

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/dtroode/authlib-server/internal/model"
)

var (
	_ model.SecurityLayer = (*TLSListener)(nil)
	_ model.SecurityLayer = (*PlainListener)(nil)
)

// TLSListener serves connections over TLS 1.2 or newer.
// Bearer tokens and passwords cross this listener, so it is the default outside development.
type TLSListener struct {
	config *tls.Config
}

// NewTLSListener loads the key pair up front so a bad path fails at startup, not at first Listen.
func NewTLSListener(certFileName, privateKeyFileName string) (*TLSListener, error) {
	cert, err := tls.LoadX509KeyPair(certFileName, privateKeyFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}
	return &TLSListener{
		config: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}, nil
}

// Listen opens a TLS listener on addr.
func (l *TLSListener) Listen(protocol, addr string) (net.Listener, error) {
	inner, err := net.Listen(protocol, addr)
	if err != nil {
		return nil, err
	}
	return tls.NewListener(inner, l.config.Clone()), nil
}

// PlainListener serves unencrypted connections.
type PlainListener struct{}

// NewPlainListener creates a new PlainListener instance.
func NewPlainListener() *PlainListener {
	return &PlainListener{}
}

// Listen opens a plain listener on addr.
func (l *PlainListener) Listen(protocol, addr string) (net.Listener, error) {
	return net.Listen(protocol, addr)
}
