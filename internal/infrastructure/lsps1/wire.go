package lsps1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexInt accepts LSPS1 numerics encoded either as JSON strings or numbers.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("numeric field %q: %w", s, err)
		}
		n = int64(fl)
	}
	*f = flexInt(n)
	return nil
}

type infoOptions struct {
	MinRequiredChannelConfirmations flexInt `json:"min_required_channel_confirmations"`
	MinFundingConfirmsWithinBlocks  flexInt `json:"min_funding_confirms_within_blocks"`
	SupportsZeroChannelReserve      bool    `json:"supports_zero_channel_reserve"`
	MaxChannelExpiryBlocks          flexInt `json:"max_channel_expiry_blocks"`
	MinInitialLSPBalanceSat         flexInt `json:"min_initial_lsp_balance_sat"`
	MaxInitialLSPBalanceSat         flexInt `json:"max_initial_lsp_balance_sat"`
	MinChannelBalanceSat            flexInt `json:"min_channel_balance_sat"`
	MaxChannelBalanceSat            flexInt `json:"max_channel_balance_sat"`
}

// infoResponse covers both the flat layout and the older "options" envelope.
type infoResponse struct {
	URIs    []string     `json:"uris"`
	Options *infoOptions `json:"options"`
	infoOptions
}

func (r infoResponse) effectiveOptions() infoOptions {
	if r.Options != nil {
		return *r.Options
	}
	return r.infoOptions
}

type orderRequest struct {
	PublicKey                    string `json:"public_key"`
	ChannelSizeSat               string `json:"channel_size_sat"`
	LSPBalanceSat                string `json:"lsp_balance_sat"`
	ClientBalanceSat             string `json:"client_balance_sat"`
	RequiredChannelConfirmations int64  `json:"required_channel_confirmations"`
	FundingConfirmsWithinBlocks  int64  `json:"funding_confirms_within_blocks"`
	ChannelExpiryBlocks          int64  `json:"channel_expiry_blocks"`
	AnnounceChannel              bool   `json:"announce_channel"`
}
