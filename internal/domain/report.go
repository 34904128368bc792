package domain

import "time"

// SellReport tallies one seller run.
type SellReport struct {
	Requested int  `json:"requested"`
	Created   int  `json:"created"`
	Errors    int  `json:"errors"`
	AboveMin  bool `json:"above_min,omitempty"`
	AboveMax  bool `json:"above_max,omitempty"`
	Exhausted bool `json:"exhausted,omitempty"`
}

// BuyReport tallies one buyer run.
type BuyReport struct {
	Candidates int `json:"candidates"`
	Evaluated  int `json:"evaluated"`
	Bids       int `json:"bids"`
	Buyouts    int `json:"buyouts"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// ChannelReport is the outcome of one channel within a tick.
type ChannelReport struct {
	Channel       ChannelID   `json:"channel"`
	ConfigVersion int64       `json:"config_version"`
	Sell          *SellReport `json:"sell,omitempty"`
	Buy           *BuyReport  `json:"buy,omitempty"`
}

// Errors is the total error count for the channel.
func (r ChannelReport) Errors() int {
	n := 0
	if r.Sell != nil {
		n += r.Sell.Errors
	}
	if r.Buy != nil {
		n += r.Buy.Errors
	}
	return n
}

// TickReport is the outcome of one scheduler tick.
type TickReport struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Channels   []ChannelReport `json:"channels"`
	// Purged counts expired bid-less listings swept before the tick.
	Purged int `json:"purged,omitempty"`
}

// Errors sums the error counters of every channel.
func (r TickReport) Errors() int {
	n := 0
	for _, c := range r.Channels {
		n += c.Errors()
	}
	return n
}
