package keys

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// Provider generates the key pair exactly once and hands the same immutable
// value to every caller afterwards. Init runs before the server accepts
// connections; Current is lock-free to read after that.
type Provider struct {
	bits   int
	logger logging.Logger

	once sync.Once
	pair *KeyPair
	err  error
}

func NewProvider(bits int, l logging.Logger) *Provider {
	if bits == 0 {
		bits = DefaultBits
	}
	return &Provider{bits: bits, logger: l.With("module", "keys")}
}

// Init generates the key pair on first call and returns the cached outcome
// on every later call. Failures are never retried.
func (p *Provider) Init(ctx context.Context) (*KeyPair, error) {
	p.once.Do(func() {
		p.pair, p.err = Generate(p.bits)
		if p.err != nil {
			p.logger.Error(ctx, "key pair generation failed", "error", p.err)
			return
		}
		p.logger.Info(ctx, "key pair generated", "bits", p.bits, "fingerprint", p.pair.Fingerprint)
	})
	return p.pair, p.err
}

// Current returns the generated pair, or nil before a successful Init.
func (p *Provider) Current() *KeyPair {
	return p.pair
}
