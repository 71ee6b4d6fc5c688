// Package dispatch implements provider selection with ordered fallback
// (spec.md §4.5): call the primary adapter, and on failure walk the
// fallback chain in order, returning the first success.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blackroad/gateway/pkg/provider"
)

// ErrNoProviderAvailable is returned when the primary cannot be resolved
// and the fallback chain is empty.
var ErrNoProviderAvailable = errors.New("no provider available")

// Result carries the outcome of a successful invocation.
type Result struct {
	Output   string
	Provider string
	Fallback bool
}

// Lookup resolves a provider name to an adapter, or nil if unknown.
type Lookup interface {
	Get(name string) provider.Adapter
}

// InvokeWithFallback calls primary first; if it is unresolved or its
// Invoke fails, it tries each name in fallbackChain in order, skipping
// primary itself and any name the registry cannot resolve. The first
// success wins. A failing primary with an empty fallback chain re-raises
// the primary's error verbatim rather than wrapping it in a composite.
func InvokeWithFallback(ctx context.Context, reg Lookup, primary string, fallbackChain []string, args provider.Args) (Result, error) {
	primaryAdapter := reg.Get(primary)

	var primaryErr, primaryRawErr error
	if primaryAdapter != nil {
		out, err := primaryAdapter.Invoke(ctx, args)
		if err == nil {
			return Result{Output: out, Provider: primary, Fallback: false}, nil
		}
		primaryRawErr = err
		primaryErr = fmt.Errorf("%s: %w", primary, err)
	} else {
		primaryErr = fmt.Errorf("%s: %w", primary, errUnresolved)
	}

	if len(fallbackChain) == 0 {
		if primaryAdapter == nil {
			return Result{}, ErrNoProviderAvailable
		}
		return Result{}, primaryRawErr
	}

	errs := []error{primaryErr}
	for _, name := range fallbackChain {
		if name == primary {
			continue
		}
		adapter := reg.Get(name)
		if adapter == nil {
			continue
		}
		out, err := adapter.Invoke(ctx, args)
		if err == nil {
			return Result{Output: out, Provider: name, Fallback: true}, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}

	return Result{}, &CompositeError{Errs: errs}
}

var errUnresolved = errors.New("not configured")

// CompositeError reports that every attempted provider failed.
type CompositeError struct {
	Errs []error
}

func (e *CompositeError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "all providers failed: " + strings.Join(msgs, "; ")
}

func (e *CompositeError) Unwrap() []error {
	return e.Errs
}
