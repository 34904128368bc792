package ahbot

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// Registry owns the live configuration of every channel. Readers get
// immutable snapshots; writers swap in a new version.
type Registry struct {
	mu       sync.Mutex // serialises writers
	channels map[domain.ChannelID]*atomic.Pointer[domain.ChannelConfig]
}

// NewRegistry seeds the registry with one snapshot per configured channel.
func NewRegistry(cfgs ...domain.ChannelConfig) *Registry {
	r := &Registry{channels: make(map[domain.ChannelID]*atomic.Pointer[domain.ChannelConfig], len(cfgs))}
	for i := range cfgs {
		p := &atomic.Pointer[domain.ChannelConfig]{}
		p.Store(cfgs[i].Clone())
		r.channels[cfgs[i].Channel] = p
	}
	return r
}

// Snapshot returns the current configuration of ch, or nil when the
// channel is not configured. Callers must not modify it.
func (r *Registry) Snapshot(ch domain.ChannelID) *domain.ChannelConfig {
	p, ok := r.channels[ch]
	if !ok {
		return nil
	}
	return p.Load()
}

// Channels returns the configured channels in scheduling order.
func (r *Registry) Channels() []domain.ChannelID {
	out := make([]domain.ChannelID, 0, len(r.channels))
	for _, ch := range domain.Channels {
		if _, ok := r.channels[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// Update applies fn to a copy of ch's configuration and publishes the copy
// with the next version. Nothing changes if fn or validation fails.
func (r *Registry) Update(ch domain.ChannelID, fn func(*domain.ChannelConfig) error) (*domain.ChannelConfig, error) {
	out, err := r.UpdateAll([]domain.ChannelID{ch}, fn)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// UpdateAll applies fn to every channel in chs. Either every channel gets
// a new version or, when fn or validation fails for any of them, none does.
func (r *Registry) UpdateAll(chs []domain.ChannelID, fn func(*domain.ChannelConfig) error) ([]*domain.ChannelConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]*domain.ChannelConfig, len(chs))
	for i, ch := range chs {
		p, ok := r.channels[ch]
		if !ok {
			return nil, fmt.Errorf("registry: %w: %s", domain.ErrUnknownChannel, ch)
		}
		cfg := p.Load().Clone()
		if err := fn(cfg); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("registry: %w: %v", domain.ErrInvalidCommand, err)
		}
		cfg.Channel = ch
		cfg.Version++
		next[i] = cfg
	}
	for i, ch := range chs {
		r.channels[ch].Store(next[i])
	}
	return next, nil
}

// Replace stores cfg as-is, used when loading persisted snapshots.
func (r *Registry) Replace(cfg domain.ChannelConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.channels[cfg.Channel]; ok {
		p.Store(cfg.Clone())
	}
}
