package cache

import "time"

// Option configures a single Set.
type Option func(*options)

type options struct {
	ttl      time.Duration
	ttlSet   bool
	tags     []string
	compress bool
}

// WithTTL sets how long the entry stays live. A zero TTL keeps the entry
// readable only until the clock moves.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		o.ttl = d
		o.ttlSet = true
	}
}

// WithTags attaches group-invalidation tags to the entry.
func WithTags(tags ...string) Option {
	return func(o *options) {
		o.tags = append(o.tags, tags...)
	}
}

// WithCompression compresses the serialized value when it exceeds the
// configured threshold.
func WithCompression() Option {
	return func(o *options) {
		o.compress = true
	}
}

func (c *Cache) resolve(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if !o.ttlSet {
		o.ttl = c.cfg.DefaultTTL
	}
	if o.tags == nil {
		o.tags = []string{}
	}
	return o
}
