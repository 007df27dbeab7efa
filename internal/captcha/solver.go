package captcha

import (
	"context"
	"errors"
)

// ErrNoSolver is returned when a portal demands a captcha but no solver
// was configured. The task fails rather than retries: retrying cannot
// conjure an API key.
var ErrNoSolver = errors.New("captcha: no solver configured")

// ErrUnsolvable is returned when the solving service gives up on a
// challenge.
var ErrUnsolvable = errors.New("captcha: unsolvable challenge")

// Solver answers portal captchas.
type Solver interface {
	// SolveImage returns the code shown in a distorted-image captcha.
	SolveImage(ctx context.Context, image []byte) (string, error)

	// SolveInteractive returns a Cloudflare Turnstile response token for
	// the given site key and page URL.
	SolveInteractive(ctx context.Context, siteKey, pageURL string) (string, error)
}

// Disabled is a Solver that rejects every challenge. It stands in when
// no API key is configured so portals without captchas keep working.
type Disabled struct{}

// SolveImage implements Solver.
func (Disabled) SolveImage(context.Context, []byte) (string, error) {
	return "", ErrNoSolver
}

// SolveInteractive implements Solver.
func (Disabled) SolveInteractive(context.Context, string, string) (string, error) {
	return "", ErrNoSolver
}
