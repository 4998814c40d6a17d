package application

import (
	"time"

	"lspquotes-service/internal/domain"
)

// MergeQuotes overlays fresh onto prior, keyed by provider, in the order of
// active. A fresh entry that is not usable never replaces a usable prior one;
// the prior is kept and tagged cached instead. Providers absent from fresh
// keep their prior entry untouched; providers in neither list are left out.
func MergeQuotes(active []domain.Provider, prior, fresh []domain.Quote, now time.Time) []domain.Quote {
	old := domain.IndexByProvider(prior)
	cur := domain.IndexByProvider(fresh)
	out := make([]domain.Quote, 0, len(active))
	for _, p := range active {
		f, hasFresh := cur[p.ID]
		o, hasOld := old[p.ID]
		switch {
		case hasFresh && f.Valid():
			out = append(out, f)
		case hasFresh && hasOld && o.Valid():
			out = append(out, o.AsCached(now))
		case hasFresh:
			out = append(out, f)
		case hasOld:
			out = append(out, o)
		}
	}
	return out
}

// hasValid reports whether any quote carries a usable fee.
func hasValid(quotes []domain.Quote) bool {
	for _, q := range quotes {
		if q.Valid() {
			return true
		}
	}
	return false
}

func countLive(quotes []domain.Quote) int {
	n := 0
	for _, q := range quotes {
		if q.Provenance == domain.ProvenanceLive {
			n++
		}
	}
	return n
}
