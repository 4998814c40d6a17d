package domain

// Capabilities is the validated subset of an LSPS1 get_info answer.
// Zero bounds mean the provider did not advertise one.
type Capabilities struct {
	URIs                            []string
	MinChannelBalanceSat            int64
	MaxChannelBalanceSat            int64
	MinInitialLSPBalanceSat         int64
	MaxInitialLSPBalanceSat         int64
	MinRequiredChannelConfirmations int64
	MinFundingConfirmsWithinBlocks  int64
	MaxChannelExpiryBlocks          int64
	SupportsZeroChannelReserve      bool
}

// ChannelBounds returns the effective [min, max] channel size, preferring
// channel-balance bounds over initial-LSP-balance bounds.
func (c Capabilities) ChannelBounds() (min, max int64) {
	min, max = c.MinChannelBalanceSat, c.MaxChannelBalanceSat
	if min == 0 {
		min = c.MinInitialLSPBalanceSat
	}
	if max == 0 {
		max = c.MaxInitialLSPBalanceSat
	}
	return min, max
}

// OrderQuote is the priced result of create_order.
type OrderQuote struct {
	OrderID      string
	TotalFeeMsat int64
	Fees         FeeBreakdown
	Strategy     string // name of the fee extraction strategy that matched
}
