// Package registry maps transport and serializer names, as used in flags and
// configuration files, to their implementations.
package registry

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/kvmux/rpc/serializer"
	"github.com/ValentinKolb/kvmux/rpc/transport"
	"github.com/ValentinKolb/kvmux/rpc/transport/http"
	"github.com/ValentinKolb/kvmux/rpc/transport/tcp"
	"github.com/ValentinKolb/kvmux/rpc/transport/unix"
)

// Names accepted by the functions of this package.
var (
	Transports  = []string{"http", "tcp", "unix"}
	Serializers = []string{"binary", "json", "gob"}
)

// NewSerializer returns the serializer called name
func NewSerializer(name string) (serializer.IRPCSerializer, error) {
	switch strings.ToLower(name) {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %q (must be one of %s)", name, strings.Join(Serializers, ", "))
	}
}

// NewClientTransport returns a new client transport called name
func NewClientTransport(name string) (transport.IRPCClientTransport, error) {
	switch strings.ToLower(name) {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %q (must be one of %s)", name, strings.Join(Transports, ", "))
	}
}

// NewServerTransport returns a new server transport called name
func NewServerTransport(name string) (transport.IRPCServerTransport, error) {
	switch strings.ToLower(name) {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixDefaultServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %q (must be one of %s)", name, strings.Join(Transports, ", "))
	}
}
