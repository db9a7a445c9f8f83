package app

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jcmexdev/storefront/internal/pkg/cache"
	"github.com/jcmexdev/storefront/internal/store/domain"
)

const defaultCacheTTL = 5 * time.Minute

type options struct {
	autoRecalculate bool
	policy          domain.StatusPolicy
	cache           cache.Cache
	cacheTTL        time.Duration
	now             func() time.Time
	newID           func() string
	passwordCost    int
}

func defaultOptions() options {
	return options{
		policy:       domain.PermissivePolicy{},
		cache:        cache.NewNoopCache("storefront"),
		cacheTTL:     defaultCacheTTL,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
		passwordCost: bcrypt.DefaultCost,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures the catalog and order services.
type Option func(*options)

// WithAutoRecalculate makes every line mutation and product deletion
// recompute the affected order totals in the same transaction.
func WithAutoRecalculate(on bool) Option {
	return func(o *options) { o.autoRecalculate = on }
}

// WithStatusPolicy replaces the default permissive status policy.
func WithStatusPolicy(p domain.StatusPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// WithCache enables read-through caching of catalog reads.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPasswordCost sets the bcrypt cost used for account passwords.
func WithPasswordCost(cost int) Option {
	return func(o *options) { o.passwordCost = cost }
}
