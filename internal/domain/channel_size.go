package domain

import "fmt"

// MaxChannelSizeSat is 100 BTC; anything above is treated as malformed input.
const MaxChannelSizeSat int64 = 10_000_000_000

func ValidateChannelSize(sat int64) error {
	if sat <= 0 || sat > MaxChannelSizeSat {
		return fmt.Errorf("%w: %d", ErrInvalidChannelSize, sat)
	}
	return nil
}
