package main

import (
	"fmt"
	"strings"

	"github.com/ridge/solstream"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/filter"
	"github.com/ridge/solstream/sink"
	"github.com/ridge/solstream/transport"
	"github.com/ridge/solstream/wire"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SOLSTREAM"

const (
	configKey         = "config"
	endpointKey       = "endpoint"
	tokenKey          = "x-token"
	commitmentKey     = "commitment"
	protocolsKey      = "protocols"
	eventTypesKey     = "event-types"
	connectTimeoutKey = "connect-timeout"
	requestTimeoutKey = "request-timeout"
	maxMessageSizeKey = "max-message-size"
	metricsKey        = "metrics"
	metricsAddrKey    = "metrics-addr"
	eventsWSKey       = "events-ws"
	kafkaBrokersKey   = "kafka-brokers"
	kafkaTopicKey     = "kafka-topic"
	redisURLKey       = "redis-url"
	redisChannelKey   = "redis-channel"
	queueSizeKey      = "queue-size"
	queuePolicyKey    = "queue-policy"
)

func buildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("solstream", pflag.ContinueOnError)
	fs.String(configKey, "", "Configuration file (yaml, json or toml)")
	fs.String(endpointKey, "", "Feed URL, e.g. https://grpc.example.com")
	fs.String(tokenKey, "", "Feed access token")
	fs.String(commitmentKey, "processed", "Commitment level (processed|confirmed|finalized)")
	fs.StringSlice(protocolsKey, nil, "Protocols to decode (default all)")
	fs.StringSlice(eventTypesKey, nil, "Event types to deliver (default all)")
	fs.Duration(connectTimeoutKey, transport.DefaultConnectTimeout, "Connection timeout")
	fs.Duration(requestTimeoutKey, transport.DefaultRequestTimeout, "Subscribe request timeout")
	fs.Int(maxMessageSizeKey, transport.DefaultMaxDecodingMessageSize, "Maximum size of an update in bytes")
	fs.Bool(metricsKey, false, "Export Prometheus metrics")
	fs.String(metricsAddrKey, "localhost:9090", "HTTP address serving /metrics, /healthz and /events")
	fs.Bool(eventsWSKey, false, "Stream events to WebSocket clients at /events")
	fs.StringSlice(kafkaBrokersKey, nil, "Kafka brokers to forward events to")
	fs.String(kafkaTopicKey, "solstream-events", "Kafka topic")
	fs.String(redisURLKey, "", "Redis URL to publish events to, e.g. redis://localhost:6379/0")
	fs.String(redisChannelKey, "solstream-events", "Redis channel")
	fs.Int(queueSizeKey, 1024, "Events buffered between the feed and the sinks")
	fs.String(queuePolicyKey, "block", "What to do when the sink queue is full (block|drop-oldest)")
	return fs
}

// newViper combines the parsed flags with SOLSTREAM_* environment variables
// and the configuration file, in this order of precedence
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString(configKey); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
	}
	return v, nil
}

type config struct {
	endpoint string
	token    string
	client   solstream.Config

	subscription solstream.Subscription

	// httpAddr is empty when neither metrics nor the WebSocket stream are on
	httpAddr string
	eventsWS bool

	kafkaBrokers []string
	kafkaTopic   string
	redisURL     string
	redisChannel string
	queueSize    int
	queuePolicy  sink.Policy
}

// list reads a list that may also be given as one comma-separated string
func list(v *viper.Viper, key string) []string {
	var res []string
	for _, item := range v.GetStringSlice(key) {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				res = append(res, s)
			}
		}
	}
	return res
}

func parseConfig(v *viper.Viper) (config, error) {
	c := config{
		endpoint: v.GetString(endpointKey),
		token:    v.GetString(tokenKey),
		client: solstream.Config{
			Connection: transport.Config{
				MaxDecodingMessageSize: v.GetInt(maxMessageSizeKey),
				ConnectTimeout:         v.GetDuration(connectTimeoutKey),
				RequestTimeout:         v.GetDuration(requestTimeoutKey),
			},
			EnableMetrics: v.GetBool(metricsKey),
		},
		kafkaBrokers: list(v, kafkaBrokersKey),
		kafkaTopic:   v.GetString(kafkaTopicKey),
		redisURL:     v.GetString(redisURLKey),
		redisChannel: v.GetString(redisChannelKey),
		queueSize:    v.GetInt(queueSizeKey),
		eventsWS:     v.GetBool(eventsWSKey),
	}
	if c.client.EnableMetrics || c.eventsWS {
		c.httpAddr = v.GetString(metricsAddrKey)
	}

	if c.endpoint == "" {
		return config{}, fmt.Errorf("--%s is required", endpointKey)
	}
	if _, err := transport.ParseEndpoint(c.endpoint); err != nil {
		return config{}, err
	}

	commitment, ok := wire.ParseCommitmentLevel(v.GetString(commitmentKey))
	if !ok {
		return config{}, fmt.Errorf("invalid --%s %q", commitmentKey, v.GetString(commitmentKey))
	}
	c.subscription.Commitment = wire.Commitment(commitment)

	protocols := event.AllProtocols
	if names := list(v, protocolsKey); len(names) > 0 {
		protocols = nil
		for _, name := range names {
			p, err := event.ParseProtocol(name)
			if err != nil {
				return config{}, err
			}
			protocols = append(protocols, p)
		}
	}
	c.subscription.Protocols = protocols
	c.subscription.Accounts, c.subscription.Transactions = filter.ForPrograms(event.ProgramIDs(protocols))

	if names := list(v, eventTypesKey); len(names) > 0 {
		var types []event.Type
		for _, name := range names {
			t, err := event.ParseType(name)
			if err != nil {
				return config{}, err
			}
			types = append(types, t)
		}
		c.subscription.EventTypes = filter.Types(types...)
	}

	policy, ok := sink.ParsePolicy(v.GetString(queuePolicyKey))
	if !ok {
		return config{}, fmt.Errorf("invalid --%s %q", queuePolicyKey, v.GetString(queuePolicyKey))
	}
	c.queuePolicy = policy
	return c, nil
}
