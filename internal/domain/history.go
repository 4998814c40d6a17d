package domain

import "time"

// Snapshot is the current record of one channel-size bucket.
type Snapshot struct {
	ChannelSizeSat int64     `json:"channel_size_sat"`
	Quotes         []Quote   `json:"quotes"`
	UpdatedAt      time.Time `json:"updated_at"`
	ProviderCount  int       `json:"provider_count"`
}

func NewSnapshot(channelSizeSat int64, quotes []Quote, at time.Time) Snapshot {
	return Snapshot{
		ChannelSizeSat: channelSizeSat,
		Quotes:         quotes,
		UpdatedAt:      at,
		ProviderCount:  len(quotes),
	}
}

// HistoryEntry is an immutable append record of a written snapshot.
type HistoryEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	ChannelSizeSat int64     `json:"channel_size_sat"`
	Quotes         []Quote   `json:"quotes"`
}
