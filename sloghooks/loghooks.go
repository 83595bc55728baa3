// Package sloghooks logs high-signal tagcache events to a *slog.Logger.
package sloghooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/tagcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	StaleEvery   uint64
	CorruptEvery uint64
	// Verbose logs every event at debug level, not only the notable ones.
	Verbose bool
	// Optional key redactor. Defaults to SHA-256 prefix. Tag names are never redacted.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	staleCtr   atomic.Uint64
	corruptCtr atomic.Uint64
}

var _ tagcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func isTagOp(op tagcache.Op) bool {
	return op == tagcache.OpReadTag || op == tagcache.OpReadTags || op == tagcache.OpTouchTag
}

func (h *Hooks) attrs(ev tagcache.Event) []slog.Attr {
	out := make([]slog.Attr, 0, 6)
	out = append(out, slog.String("op", string(ev.Op)))
	if ev.Super != "" {
		out = append(out, slog.String("super", string(ev.Super)))
	}
	if ev.Key != "" {
		k := ev.Key
		if !isTagOp(ev.Op) {
			k = h.redact(k)
		}
		out = append(out, slog.String("key", k))
	}
	if len(ev.Tags) > 0 {
		out = append(out, slog.Any("tags", ev.Tags))
	}
	out = append(out, slog.Duration("took", ev.Duration))
	return out
}

func (h *Hooks) Observe(ev tagcache.Event) {
	if h.l == nil {
		return
	}
	ctx := context.Background()
	switch {
	case ev.Err != nil:
		h.l.LogAttrs(ctx, slog.LevelWarn, "tagcache.error", append(h.attrs(ev), slog.Any("err", ev.Err))...)
	case ev.Rejected:
		h.l.LogAttrs(ctx, slog.LevelWarn, "tagcache.provider_set_rejected", h.attrs(ev)...)
	case ev.Corrupt:
		if sample(h.opts.CorruptEvery, &h.corruptCtr) {
			h.l.LogAttrs(ctx, slog.LevelWarn, "tagcache.corrupt_entry", h.attrs(ev)...)
		}
	case ev.Extended:
		h.l.LogAttrs(ctx, slog.LevelInfo, "tagcache.race_window_extended", h.attrs(ev)...)
	case ev.Stale:
		if sample(h.opts.StaleEvery, &h.staleCtr) {
			h.l.LogAttrs(ctx, slog.LevelDebug, "tagcache.stale_entry", h.attrs(ev)...)
		}
	case h.opts.Verbose:
		h.l.LogAttrs(ctx, slog.LevelDebug, "tagcache."+string(ev.Op),
			append(h.attrs(ev), slog.Bool("hit", ev.Hit))...)
	}
}
