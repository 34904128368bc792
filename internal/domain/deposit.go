package domain

import "time"

// DepositCalculator prices the fee a seller pays to post a listing.
type DepositCalculator interface {
	Deposit(cfg ChannelConfig, d time.Duration, tmpl ItemTemplate, count int) int64
}

// StandardDeposit charges DepositPercent of the vendor sell value of the
// stack for every started 12 hours of listing time, with a floor of 1.
type StandardDeposit struct{}

// Deposit returns the fee for count items of tmpl listed for d. Durations
// under 12 hours count as one period.
func (StandardDeposit) Deposit(cfg ChannelConfig, d time.Duration, tmpl ItemTemplate, count int) int64 {
	periods := int64((d + 12*time.Hour - 1) / (12 * time.Hour))
	if periods < 1 {
		periods = 1
	}
	dep := tmpl.SellPrice * int64(count) * int64(cfg.DepositPercent) / 100 * periods
	if dep < 1 {
		return 1
	}
	return dep
}
