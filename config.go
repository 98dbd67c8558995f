package solstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ridge/solstream/transport"
	"google.golang.org/grpc"
)

// Config is the configuration of a Client. It is not modified after New and is
// shared by clones.
type Config struct {
	// Connection limits; zero fields take the defaults
	Connection transport.Config

	// EnableMetrics exports session metrics to Registerer
	EnableMetrics bool

	// Registerer receives the metrics. nil means the default registry.
	Registerer prometheus.Registerer

	// DialOptions are applied after the built-in gRPC options
	DialOptions []grpc.DialOption
}

// DefaultConfig returns the default configuration, with metrics disabled
func DefaultConfig() Config {
	return Config{Connection: transport.DefaultConfig()}
}
