package limiters

import (
	"github.com/turtacn/taskhub/internal/config"
	"github.com/turtacn/taskhub/internal/interfaces/http/middleware"
	"github.com/turtacn/taskhub/pkg/errors"
)

// Families holds every HTTP rate limit policy.
type Families struct {
	Global middleware.Policy
	Auth   AuthPolicies
	API    APIPolicies
	Search middleware.Policy
}

// NewFamilies builds and validates all policies. An error here is a
// configuration mistake and should stop the service from starting.
func NewFamilies(cfg *config.RateLimitConfig) (*Families, error) {
	f := &Families{
		Global: Global(cfg),
		Auth:   Auth(cfg),
		API:    API(),
		Search: Search(cfg),
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// All returns every policy, global first.
func (f *Families) All() []middleware.Policy {
	all := []middleware.Policy{f.Global}
	all = append(all, f.Auth.all()...)
	all = append(all, f.API.all()...)
	return append(all, f.Search)
}

// Validate checks each policy and that no two policies share a counter namespace.
func (f *Families) Validate() error {
	seen := make(map[string]struct{})
	for _, p := range f.All() {
		if err := p.Validate(); err != nil {
			return err
		}
		ns := p.Namespace()
		if _, dup := seen[ns]; dup {
			return errors.ErrInvalidConfig("duplicate rate limit namespace %s", ns)
		}
		seen[ns] = struct{}{}
	}
	return nil
}
