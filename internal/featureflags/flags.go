// Package featureflags evaluates runtime switches configured through FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flags.
const (
	// MarkdownPosts renders post content as markdown.
	MarkdownPosts = "markdown_posts"
	// FollowReconcile re-reads a profile after a failed follow toggle.
	FollowReconcile = "follow_reconcile"
)

var defaults = map[string]string{
	MarkdownPosts:   "off",
	FollowReconcile: "on",
}

// Set evaluates flags from a key=value list such as
// "markdown_posts=25%,follow_reconcile=off". Unlisted known flags keep their
// defaults.
type Set struct {
	flags map[string]string
}

// Parse builds a Set from raw. Malformed pairs are ignored.
func Parse(raw string) *Set {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return &Set{flags: out}
}

// Enabled reports whether name is on for subject, usually a browser session id.
// Values are on/true/1, off/false/0, or N% for a stable per-subject rollout.
func (s *Set) Enabled(name, subject string) bool {
	if s == nil {
		return false
	}
	value, ok := s.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if subject == "" {
		return false
	}
	return bucket(name, subject) < pct
}

// Settings returns a copy of the configured flag values.
func (s *Set) Settings() map[string]string {
	if s == nil {
		return nil
	}
	out := make(map[string]string, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + subject))
	return int(h.Sum32() % 100)
}
