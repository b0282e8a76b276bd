package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// ErrorKind classifies why a provider call failed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindRateLimited
	KindNotFound
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindRateLimited:
		return "rate_limited"
	case KindNotFound:
		return "not_found"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// ProviderError is the only error type a Provider returns.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	// Message is the upstream explanation, when the provider gave one.
	Message string
	Err     error
}

func NewError(provider string, kind ErrorKind, message string) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Message: message}
}

func WrapError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Classify turns any error returned from a provider call into a *ProviderError.
// Existing ProviderErrors pass through, transport failures become KindNetwork and
// everything else KindUnknown.
func Classify(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.Provider == "" {
			cp := *pe
			cp.Provider = provider
			return &cp
		}
		return pe
	}
	if IsNetwork(err) {
		return WrapError(provider, KindNetwork, err)
	}
	return WrapError(provider, KindUnknown, err)
}

// IsNetwork reports whether err is a timeout or connection level failure.
func IsNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// KindOf returns the kind of the first ProviderError in err's chain.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}
