package aggregate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nanzhong/tickerbot/market"
)

var ErrEmptySymbol = errors.New("empty symbol")

// AllProvidersFailedError is returned when every configured provider failed. Errors
// holds one *market.ProviderError per provider in priority order.
type AllProvidersFailedError struct {
	Op     string
	Target string
	Errors []error
}

func (e *AllProvidersFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s %s: all providers failed: [%s]", e.Op, e.Target, strings.Join(msgs, "; "))
}

func (e *AllProvidersFailedError) Unwrap() []error {
	return e.Errors
}

// AllKind reports whether every provider failed with kind, e.g. to tell "everyone is
// rate limiting us" from "nobody knows this symbol".
func (e *AllProvidersFailedError) AllKind(kind market.ErrorKind) bool {
	if len(e.Errors) == 0 {
		return false
	}
	for _, err := range e.Errors {
		if market.KindOf(err) != kind {
			return false
		}
	}
	return true
}

// Kinds returns the error kind of each provider failure in order.
func (e *AllProvidersFailedError) Kinds() []market.ErrorKind {
	kinds := make([]market.ErrorKind, len(e.Errors))
	for i, err := range e.Errors {
		kinds[i] = market.KindOf(err)
	}
	return kinds
}
