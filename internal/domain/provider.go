package domain

import "time"

// Provider is a statically configured LSP.
type Provider struct {
	ID        string
	Name      string
	URLs      []string // ordered candidates; the first that answers get_info wins
	PublicKey string
	Active    bool
	Cooldown  time.Duration
	FeeFields []string // fee extraction strategy names in priority order
}

// ActiveProviders keeps configured order.
func ActiveProviders(all []Provider) []Provider {
	out := make([]Provider, 0, len(all))
	for _, p := range all {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// FindProvider looks up a provider by id.
func FindProvider(all []Provider, id string) (Provider, bool) {
	for _, p := range all {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}
