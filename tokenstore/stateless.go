package tokenstore

import (
	"context"
	"time"
)

// Stateless trusts token signatures alone and records nothing. Rotation
// always succeeds and revocation is a no-op, so a stolen refresh token
// stays usable until it expires. Deployments choose this strategy only
// when they accept that reduced guarantee in exchange for zero storage.
type Stateless struct{}

// NewStateless returns the no-op Store.
func NewStateless() *Stateless {
	return &Stateless{}
}

func (*Stateless) Put(context.Context, string, string, time.Duration) error {
	return nil
}

func (*Stateless) Validate(context.Context, string, string) error {
	return nil
}

func (*Stateless) Rotate(context.Context, string, string, string, time.Duration) error {
	return nil
}

func (*Stateless) Revoke(context.Context, string) error {
	return nil
}
