package mqttv3

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidTopicName   = errors.New("invalid topic name")
	ErrInvalidTopicFilter = errors.New("invalid topic filter")
	ErrEmptyTopic         = errors.New("topic cannot be empty")
)

const (
	levelSeparator = "/"
	wildcardSingle = "+"
	wildcardMulti  = "#"
)

// checkTopicString applies the rules shared by names and filters:
// non-empty, UTF-8, no NUL, and short enough for a length-prefixed field.
func checkTopicString(s string, invalid error) error {
	if s == "" {
		return ErrEmptyTopic
	}
	if len(s) > maxUint16 || !utf8.ValidString(s) || strings.IndexByte(s, 0) >= 0 {
		return invalid
	}
	return nil
}

// ValidateTopicName checks a topic name used in PUBLISH and in the will.
// Wildcards are not allowed.
func ValidateTopicName(topic string) error {
	if err := checkTopicString(topic, ErrInvalidTopicName); err != nil {
		return err
	}
	if strings.ContainsAny(topic, wildcardSingle+wildcardMulti) {
		return ErrInvalidTopicName
	}
	return nil
}

// ValidateTopicFilter checks a filter used in SUBSCRIBE and UNSUBSCRIBE.
// "+" must fill a whole level; "#" must fill the last level.
func ValidateTopicFilter(filter string) error {
	if err := checkTopicString(filter, ErrInvalidTopicFilter); err != nil {
		return err
	}

	rest := filter
	for {
		level, tail, more := strings.Cut(rest, levelSeparator)

		switch {
		case level == wildcardMulti:
			if more {
				return ErrInvalidTopicFilter
			}
		case level == wildcardSingle:
		case strings.ContainsAny(level, wildcardSingle+wildcardMulti):
			return ErrInvalidTopicFilter
		}

		if !more {
			return nil
		}
		rest = tail
	}
}

// TopicMatch reports whether topic is matched by filter. Topics starting
// with '$' are never matched by a wildcard in the first level.
func TopicMatch(filter, topic string) bool {
	if filter == "" || topic == "" {
		return false
	}

	if topic[0] == '$' && (filter[0] == '+' || filter[0] == '#') {
		return false
	}

	for {
		flevel, frest, fmore := strings.Cut(filter, levelSeparator)

		if flevel == wildcardMulti {
			return true
		}

		tlevel, trest, tmore := strings.Cut(topic, levelSeparator)
		if flevel != wildcardSingle && flevel != tlevel {
			return false
		}

		switch {
		case !fmore && !tmore:
			return true
		case !tmore:
			// "a/#" also matches the parent level "a".
			return frest == wildcardMulti
		case !fmore:
			return false
		}

		filter, topic = frest, trest
	}
}
