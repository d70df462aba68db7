package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/hearth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromObservability(t *testing.T) {
	cfg := FromObservability(config.ObservabilityConfig{
		EnableTelemetry: true,
		ServiceName:     "hearthd",
		Endpoint:        "localhost:4317",
		Protocol:        "grpc",
		Insecure:        true,
	}, "1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, 15*time.Second, cfg.ExportInterval)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Enabled:        true,
			Endpoint:       "localhost:4317",
			Protocol:       "grpc",
			ServiceName:    "hearthd",
			ExportInterval: time.Second,
		}
	}

	assert.NoError(t, (&Config{}).Validate(), "disabled config is always valid")

	cfg := base()
	cfg.Endpoint = ""
	assert.ErrorContains(t, cfg.Validate(), "endpoint is required")

	cfg = base()
	cfg.Protocol = "carrier-pigeon"
	assert.ErrorContains(t, cfg.Validate(), "protocol must be")

	cfg = base()
	cfg.Endpoint = "collector.example.com:4317"
	cfg.Insecure = true
	assert.ErrorContains(t, cfg.Validate(), "insecure connections")

	cfg = base()
	cfg.Endpoint = "127.0.0.1:4317"
	cfg.Insecure = true
	assert.NoError(t, cfg.Validate())
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), &Config{})
	require.NoError(t, err)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	degraded, lastErr := tel.Degraded()
	assert.False(t, degraded)
	assert.NoError(t, lastErr)
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	res, err := newResource(&Config{ServiceName: "hearthd", ServiceVersion: "dev"})
	require.NoError(t, err)

	var found bool
	for _, attr := range res.Attributes() {
		if string(attr.Key) == "service.name" {
			assert.Equal(t, "hearthd", attr.Value.AsString())
			found = true
		}
	}
	assert.True(t, found, "service.name attribute not found")
}

func TestIsLocalEndpoint(t *testing.T) {
	assert.True(t, isLocalEndpoint("localhost:4317"))
	assert.True(t, isLocalEndpoint("http://127.0.0.1:4318"))
	assert.True(t, isLocalEndpoint("[::1]:4317"))
	assert.False(t, isLocalEndpoint("otel.example.com:4317"))
}
