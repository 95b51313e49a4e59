package report

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

var (
	supported = []language.Tag{language.Japanese, language.English}
	matcher   = language.NewMatcher(supported)
)

var weekdayLabels = map[language.Tag][7]string{
	language.Japanese: {"日", "月", "火", "水", "木", "金", "土"},
	language.English:  {"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
}

// ParseLanguage resolves a BCP 47 tag such as "ja", "en" or "ja-JP" to one of
// the supported weekday languages.
func ParseLanguage(s string) (language.Tag, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("parsing weekday language %q: %w", s, err)
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.Und, fmt.Errorf("unsupported weekday language %q: want ja or en", s)
	}
	return supported[idx], nil
}

// WeekdayLabel returns the abbreviated weekday name in lang.
// Unsupported tags fall back to Japanese.
func WeekdayLabel(wd time.Weekday, lang language.Tag) string {
	labels, ok := weekdayLabels[lang]
	if !ok {
		labels = weekdayLabels[language.Japanese]
	}
	return labels[wd]
}
