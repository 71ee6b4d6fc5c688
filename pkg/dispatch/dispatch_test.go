package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/blackroad/gateway/pkg/dispatch"
	"github.com/blackroad/gateway/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	adapters map[string]provider.Adapter
}

func (f fakeRegistry) Get(name string) provider.Adapter {
	return f.adapters[name]
}

func ok(output string) provider.Adapter {
	return provider.AdapterFunc(func(ctx context.Context, args provider.Args) (string, error) {
		return output, nil
	})
}

func failing(msg string) provider.Adapter {
	return provider.AdapterFunc(func(ctx context.Context, args provider.Args) (string, error) {
		return "", errors.New(msg)
	})
}

func TestInvokeWithFallback_PrimarySucceeds(t *testing.T) {
	reg := fakeRegistry{adapters: map[string]provider.Adapter{"ollama": ok("hello")}}
	res, err := dispatch.InvokeWithFallback(context.Background(), reg, "ollama", nil, provider.Args{})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Output)
	assert.Equal(t, "ollama", res.Provider)
	assert.False(t, res.Fallback)
}

func TestInvokeWithFallback_FallsBackOnPrimaryFailure(t *testing.T) {
	reg := fakeRegistry{adapters: map[string]provider.Adapter{
		"ollama": failing("down"),
		"openai": ok("hi back"),
	}}
	res, err := dispatch.InvokeWithFallback(context.Background(), reg, "ollama", []string{"openai"}, provider.Args{})
	require.NoError(t, err)
	assert.Equal(t, "hi back", res.Output)
	assert.Equal(t, "openai", res.Provider)
	assert.True(t, res.Fallback)
}

func TestInvokeWithFallback_SkipsPrimaryNameInChain(t *testing.T) {
	reg := fakeRegistry{adapters: map[string]provider.Adapter{
		"ollama": failing("down"),
		"openai": ok("fallback"),
	}}
	res, err := dispatch.InvokeWithFallback(context.Background(), reg, "ollama", []string{"ollama", "openai"}, provider.Args{})
	require.NoError(t, err)
	assert.Equal(t, "openai", res.Provider)
}

func TestInvokeWithFallback_SkipsUnresolvedChainEntries(t *testing.T) {
	reg := fakeRegistry{adapters: map[string]provider.Adapter{
		"ollama": failing("down"),
		"openai": ok("fallback"),
	}}
	res, err := dispatch.InvokeWithFallback(context.Background(), reg, "ollama", []string{"unknown", "openai"}, provider.Args{})
	require.NoError(t, err)
	assert.Equal(t, "openai", res.Provider)
}

func TestInvokeWithFallback_PrimaryFailsEmptyChainRaisesVerbatim(t *testing.T) {
	reg := fakeRegistry{adapters: map[string]provider.Adapter{"ollama": failing("connection refused")}}
	_, err := dispatch.InvokeWithFallback(context.Background(), reg, "ollama", nil, provider.Args{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	var composite *dispatch.CompositeError
	assert.False(t, errors.As(err, &composite), "must not be wrapped in a composite error")
}

func TestInvokeWithFallback_PrimaryUnresolvedEmptyChainFails(t *testing.T) {
	reg := fakeRegistry{adapters: map[string]provider.Adapter{}}
	_, err := dispatch.InvokeWithFallback(context.Background(), reg, "ollama", nil, provider.Args{})
	require.ErrorIs(t, err, dispatch.ErrNoProviderAvailable)
}

func TestInvokeWithFallback_AllFailReturnsComposite(t *testing.T) {
	reg := fakeRegistry{adapters: map[string]provider.Adapter{
		"ollama": failing("down"),
		"openai": failing("rate limited"),
	}}
	_, err := dispatch.InvokeWithFallback(context.Background(), reg, "ollama", []string{"openai"}, provider.Args{})
	require.Error(t, err)
	var composite *dispatch.CompositeError
	require.ErrorAs(t, err, &composite)
	assert.Len(t, composite.Errs, 2)
}
