package model

import (
	"context"
	"net"
)

// SecurityLayer opens the listener the transport serves on (plain TCP or TLS).
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is a transport server run by cmd. Stop drains in-flight calls until ctx expires.
type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}
