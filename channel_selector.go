package privatepub

import (
	"regexp"
	"strings"

	uritemplate "github.com/yosida95/uritemplate/v3"
)

const (
	// channelWildcard matches a single trailing segment in a Faye channel pattern, and every channel when used alone.
	channelWildcard = "*"
	// channelDeepWildcard matches any number of trailing segments in a Faye channel pattern.
	channelDeepWildcard = "**"
)

type channelSelectorCache interface {
	Get(key string) (interface{}, bool)
	Add(key string, value interface{})
}

// ChannelSelectorStore compiles channel selectors, and caches the compiled selectors along with the match results.
//
// A channel selector is "*", an exact channel name, a Faye channel pattern
// such as "/messages/*" or "/messages/**", or a URI template such as "/messages/{id}".
type ChannelSelectorStore struct {
	cache channelSelectorCache
}

// isChannelPattern reports whether channel is a Faye pattern covering several channels.
// Faye only allows wildcards as the last segment, any "*" is treated as one.
func isChannelPattern(channel string) bool {
	return strings.Contains(channel, channelWildcard)
}

func (css *ChannelSelectorStore) match(channel, channelSelector string) bool {
	if channelSelector == channelWildcard || channel == channelSelector {
		return true
	}

	r := css.compile(channelSelector)
	if r == nil {
		return false
	}

	k := matchCacheKey(channelSelector, channel)
	if value, found := css.get(k); found {
		return value.(bool)
	}

	match := r.MatchString(channel)
	css.add(k, match)

	return match
}

// matchAny reports whether channel is matched by one of the selectors.
func (css *ChannelSelectorStore) matchAny(channel string, channelSelectors []string) bool {
	for _, channelSelector := range channelSelectors {
		if css.match(channel, channelSelector) {
			return true
		}
	}

	return false
}

// compile returns the regexp equivalent to a pattern or a template, and nil for plain channel names.
func (css *ChannelSelectorStore) compile(channelSelector string) *regexp.Regexp {
	pattern := isChannelPattern(channelSelector)
	if !pattern && !strings.Contains(channelSelector, "{") {
		return nil
	}

	k := compiledCacheKey(channelSelector)
	if value, found := css.get(k); found {
		return value.(*regexp.Regexp)
	}

	var r *regexp.Regexp
	if pattern {
		r = channelPatternRegexp(channelSelector)
	} else if tpl, err := uritemplate.New(channelSelector); err == nil {
		r = tpl.Regexp()
	}

	// Invalid selectors are cached too, they only match themselves
	css.add(k, r)

	return r
}

func (css *ChannelSelectorStore) get(k string) (interface{}, bool) {
	if css.cache == nil {
		return nil, false
	}

	return css.cache.Get(k)
}

func (css *ChannelSelectorStore) add(k string, v interface{}) {
	if css.cache != nil {
		css.cache.Add(k, v)
	}
}

// channelPatternRegexp turns "/foo/*" into a regexp matching one segment below /foo,
// and "/foo/**" into one matching any channel below /foo.
// It returns nil when wildcards appear elsewhere than in the last segment.
func channelPatternRegexp(pattern string) *regexp.Regexp {
	i := strings.LastIndexByte(pattern, '/')
	prefix, last := pattern[:i+1], pattern[i+1:]
	if strings.Contains(prefix, channelWildcard) {
		return nil
	}

	switch last {
	case channelWildcard:
		return regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + "[^/]+$")
	case channelDeepWildcard:
		return regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + ".+$")
	}

	return nil
}

func compiledCacheKey(channelSelector string) string {
	return "c\x00" + channelSelector
}

func matchCacheKey(channelSelector, channel string) string {
	return "m\x00" + channelSelector + "\x00" + channel
}
