// Package raw reads bootstrap settings without logging, the logger itself
// is configured through it
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf is a prefixed env view
type Conf struct{ prefix string }

// New returns the unprefixed view
func New() Conf { return Conf{} }

// Prefix narrows the view
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) value(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(c.prefix + key))
	return v, v != ""
}

// Get returns def when key is unset
func (c Conf) Get(key, def string) string {
	if v, ok := c.value(key); ok {
		return v
	}
	return def
}

// GetBool treats 1, true and yes as true and any other value as false
func (c Conf) GetBool(key string, def bool) bool {
	v, ok := c.value(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// GetInt returns def unless the value is a non-negative integer
func (c Conf) GetInt(key string, def int) int {
	v, ok := c.value(key)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return n
	}
	return def
}
