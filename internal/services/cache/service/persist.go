package service

import (
	"context"
	"time"

	perr "picktrack/internal/platform/errors"
)

// BlobKey is the blob holding one table snapshot
func BlobKey(table string) string { return "cache." + table }

// schedule asks the persister for a snapshot, a pending request absorbs this one
func (c *Cache) schedule() {
	if c.blobs == nil {
		return
	}
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Load restores every table from the blob store, failures leave the table empty
func (c *Cache) Load(ctx context.Context) {
	if c.blobs == nil {
		return
	}
	for _, name := range c.order() {
		b, ok, err := c.blobs.Get(ctx, BlobKey(name))
		if err != nil {
			c.log.Warn().Err(err).Str("table", name).Msg("cache snapshot load failed")
			continue
		}
		if !ok {
			continue
		}
		c.mu.Lock()
		n, err := c.named[name].restore(b, c.now())
		c.mu.Unlock()
		if err != nil {
			c.log.Warn().Err(perr.Wrapf(err, perr.ErrorCodeJSON, "decode %s snapshot", name)).Str("table", name).Msg("cache snapshot discarded")
			continue
		}
		c.log.Info().Str("table", name).Int("entries", n).Msg("cache snapshot restored")
	}
}

// Run writes snapshots until ctx ends, bursts of mutations coalesce into one write
func (c *Cache) Run(ctx context.Context) error {
	if c.blobs == nil {
		<-ctx.Done()
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			if c.drain() {
				c.final(ctx)
			}
			return nil
		case <-c.kick:
		}
		t := time.NewTimer(c.cfg.Debounce)
		select {
		case <-ctx.Done():
			t.Stop()
			c.final(ctx)
			return nil
		case <-t.C:
		}
		c.drain()
		c.Flush(ctx)
	}
}

// drain consumes a pending request and reports whether there was one
func (c *Cache) drain() bool {
	select {
	case <-c.kick:
		return true
	default:
		return false
	}
}

// final writes pending changes after ctx has ended
func (c *Cache) final(ctx context.Context) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	c.Flush(fctx)
}

// Flush writes every table now, errors are logged and dropped
func (c *Cache) Flush(ctx context.Context) {
	if c.blobs == nil {
		return
	}
	snap := make(map[string][]byte, len(c.named))
	c.mu.Lock()
	for name, s := range c.named {
		b, err := s.marshal()
		if err != nil {
			c.log.Error().Err(err).Str("table", name).Msg("cache snapshot encode failed")
			continue
		}
		snap[name] = b
	}
	c.mu.Unlock()

	for _, name := range c.order() {
		b, ok := snap[name]
		if !ok {
			continue
		}
		if err := c.blobs.Put(ctx, BlobKey(name), b); err != nil {
			c.log.Warn().Err(err).Str("table", name).Msg("cache snapshot save failed")
		}
	}
}

func (c *Cache) order() []string {
	return []string{c.ids.name, c.lines.name, c.snaps.name, c.all.name}
}
