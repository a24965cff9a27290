package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Timeout is a run deadline. Zero means unlimited.
type Timeout time.Duration

// Duration returns the deadline as a time.Duration.
func (t Timeout) Duration() time.Duration {
	return time.Duration(t)
}

// Unlimited reports whether the deadline is disabled.
func (t Timeout) Unlimited() bool {
	return t == 0
}

// String renders the deadline the way ParseTimeout accepts it.
func (t Timeout) String() string {
	if t.Unlimited() {
		return "unlimited"
	}
	return time.Duration(t).String()
}

// UnmarshalYAML accepts any form ParseTimeout accepts.
func (t *Timeout) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseTimeout(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML writes the deadline as a string.
func (t Timeout) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// ParseTimeout parses a deadline such as "30s", "10m", "2h", "7200" (bare
// seconds) or one of "0", "none", "unlimited".
func ParseTimeout(s string) (Timeout, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "0", "none", "unlimited":
		return 0, nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("timeout must not be negative: %s", s)
		}
		return Timeout(time.Duration(n) * time.Second), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout format %q: use a form like 30m, 2h, 7200s or unlimited", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative: %s", s)
	}
	return Timeout(d), nil
}
