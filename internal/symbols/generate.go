package symbols

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxCollisionChecks counts the base symbol plus suffixes .1 through .998.
const maxCollisionChecks = 999

var ErrSymbolSpaceExhausted = errors.New("unable to generate unique symbol")

// ExistsFunc reports whether symbol is already taken.
type ExistsFunc func(ctx context.Context, symbol string) (bool, error)

// Generate builds the ticker for p and resolves collisions against exists.
func (r *Registry) Generate(ctx context.Context, p Params, exists ExistsFunc) (string, error) {
	base, err := r.Symbol(p)
	if err != nil {
		return "", err
	}
	return Resolve(ctx, base, exists)
}

// Resolve returns base if it is free, otherwise the first free base.N,
// truncating base so the result stays within MaxSymbolLength. A nil exists
// treats every symbol as free.
func Resolve(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	if exists == nil {
		return base, nil
	}
	candidate := base
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check symbol %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		if n >= maxCollisionChecks {
			return "", fmt.Errorf("%w for %s", ErrSymbolSpaceExhausted, base)
		}
		candidate = withSuffix(base, n)
	}
}

func withSuffix(base string, n int) string {
	suffix := strconv.Itoa(n)
	room := MaxSymbolLength - len(suffix) - 1
	if len(base) > room {
		base = strings.TrimRight(base[:room], ".")
	}
	return base + "." + suffix
}
