package domain

import "time"

// Provenance tells where a Quote came from.
type Provenance string

const (
	ProvenanceLive        Provenance = "live"
	ProvenanceCached      Provenance = "cached"
	ProvenanceUnavailable Provenance = "unavailable"
)

// FeeBreakdown splits a total fee into its components when the provider reports them.
type FeeBreakdown struct {
	PercentageMsat int64 `json:"percentage_msat"`
	BaseMsat       int64 `json:"base_msat"`
	LeaseMsat      int64 `json:"lease_msat"`
}

// Quote is one provider's answer (or failure) for one channel size.
type Quote struct {
	ProviderID     string       `json:"provider_id"`
	ProviderName   string       `json:"provider_name"`
	ChannelSizeSat int64        `json:"channel_size_sat"`
	TotalFeeMsat   int64        `json:"total_fee_msat"`
	Fees           FeeBreakdown `json:"fees"`
	ObservedAt     time.Time    `json:"observed_at"`
	Provenance     Provenance   `json:"provenance"`
	ErrorKind      ErrorKind    `json:"error_kind,omitempty"`
	ErrorMessage   string       `json:"error_message,omitempty"`
	StaleSeconds   *int64       `json:"stale_seconds,omitempty"`
	RawError       string       `json:"raw_error,omitempty"`
}

func NewLiveQuote(p Provider, channelSizeSat int64, o OrderQuote, at time.Time) Quote {
	return Quote{
		ProviderID:     p.ID,
		ProviderName:   p.Name,
		ChannelSizeSat: channelSizeSat,
		TotalFeeMsat:   o.TotalFeeMsat,
		Fees:           o.Fees,
		ObservedAt:     at,
		Provenance:     ProvenanceLive,
	}
}

// NewUnavailableQuote builds a zero-fee quote carrying the classified failure.
func NewUnavailableQuote(p Provider, channelSizeSat int64, kind ErrorKind, msg, raw string, at time.Time) Quote {
	if kind == "" {
		kind = KindUnknown
	}
	if msg == "" {
		msg = kind.Message()
	}
	return Quote{
		ProviderID:     p.ID,
		ProviderName:   p.Name,
		ChannelSizeSat: channelSizeSat,
		ObservedAt:     at,
		Provenance:     ProvenanceUnavailable,
		ErrorKind:      kind,
		ErrorMessage:   msg,
		RawError:       raw,
	}
}

// Valid reports whether q can serve as a cache fallback.
func (q Quote) Valid() bool {
	return q.ErrorKind == "" && q.TotalFeeMsat > 0
}

// AsCached re-tags a previously observed quote as cached, with staleness relative to now.
// ObservedAt keeps the original observation time.
func (q Quote) AsCached(now time.Time) Quote {
	q.Provenance = ProvenanceCached
	q.ErrorKind = ""
	q.ErrorMessage = ""
	q.RawError = ""
	stale := int64(now.Sub(q.ObservedAt) / time.Second)
	if stale < 0 {
		stale = 0
	}
	q.StaleSeconds = &stale
	return q
}

// AsLive drops staleness; used for display when a cached quote is still fresh.
func (q Quote) AsLive() Quote {
	q.Provenance = ProvenanceLive
	q.StaleSeconds = nil
	return q
}

// Age returns how long ago the quote was observed.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.ObservedAt)
}

// IndexByProvider maps provider id to quote; later entries win on duplicates.
func IndexByProvider(quotes []Quote) map[string]Quote {
	out := make(map[string]Quote, len(quotes))
	for _, q := range quotes {
		out[q.ProviderID] = q
	}
	return out
}
