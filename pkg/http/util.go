package http

import (
	"time"

	xutil "YieldScope/pkg/util"
)

// ParseTimeDefault parses RFC3339 or unix seconds, falling back to def.
func ParseTimeDefault(s string, def time.Time) time.Time { return xutil.ParseTimeDefault(s, def) }
