package parser

import (
	"regexp"
	"strconv"
	"time"
)

// Chat exports in the wild carry locale-dependent timestamp prefixes. Each
// format owns a regex anchored at line start (with an optional iOS-style
// opening bracket) and knows how to assemble a time.Time from the captures.
type timestampFormat struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) (time.Time, bool)
}

var timestampFormats = []timestampFormat{
	{
		// 1/15/23, 10:30 AM  (US, month first, 12h clock)
		name: "us12h",
		re:   regexp.MustCompile(`^\[?(\d{1,2})/(\d{1,2})/(\d{2,4}),?\s+(\d{1,2}):(\d{2})(?::(\d{2}))?\s*([AaPp])\.?[Mm]\.?`),
		build: func(m []string) (time.Time, bool) {
			month, _ := strconv.Atoi(m[1])
			day, _ := strconv.Atoi(m[2])
			year, ok := normalizeYear(m[3])
			if !ok {
				return time.Time{}, false
			}
			hour, _ := strconv.Atoi(m[4])
			if hour < 1 || hour > 12 {
				return time.Time{}, false
			}
			hour = hour % 12
			if m[7] == "P" || m[7] == "p" {
				hour += 12
			}
			return buildDate(year, month, day, hour, m[5], m[6])
		},
	},
	{
		// 15/1/23, 10:30  (EU, day first, 24h clock, comma after date)
		name: "eu24h",
		re:   regexp.MustCompile(`^\[?(\d{1,2})/(\d{1,2})/(\d{2,4}),\s+(\d{1,2}):(\d{2})(?::(\d{2}))?`),
		build: func(m []string) (time.Time, bool) {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			year, ok := normalizeYear(m[3])
			if !ok {
				return time.Time{}, false
			}
			hour, _ := strconv.Atoi(m[4])
			if hour > 23 {
				return time.Time{}, false
			}
			return buildDate(year, month, day, hour, m[5], m[6])
		},
	},
	{
		// 2023-01-15, 10:30  (ISO, year first)
		name: "iso",
		re:   regexp.MustCompile(`^\[?(\d{4})-(\d{2})-(\d{2}),?\s+(\d{1,2}):(\d{2})(?::(\d{2}))?`),
		build: func(m []string) (time.Time, bool) {
			year, ok := normalizeYear(m[1])
			if !ok {
				return time.Time{}, false
			}
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			hour, _ := strconv.Atoi(m[4])
			if hour > 23 {
				return time.Time{}, false
			}
			return buildDate(year, month, day, hour, m[5], m[6])
		},
	},
	{
		// 15.01.23, 10:30  (German, dot separated, day first)
		name: "german",
		re:   regexp.MustCompile(`^\[?(\d{1,2})\.(\d{1,2})\.(\d{2,4}),?\s+(\d{1,2}):(\d{2})(?::(\d{2}))?`),
		build: func(m []string) (time.Time, bool) {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			year, ok := normalizeYear(m[3])
			if !ok {
				return time.Time{}, false
			}
			hour, _ := strconv.Atoi(m[4])
			if hour > 23 {
				return time.Time{}, false
			}
			return buildDate(year, month, day, hour, m[5], m[6])
		},
	},
	{
		// 15/01/23 10:30  (Brazilian, day first, 24h clock, no comma)
		name: "br24h",
		re:   regexp.MustCompile(`^\[?(\d{1,2})/(\d{1,2})/(\d{2,4})\s+(\d{1,2}):(\d{2})(?::(\d{2}))?`),
		build: func(m []string) (time.Time, bool) {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			year, ok := normalizeYear(m[3])
			if !ok {
				return time.Time{}, false
			}
			hour, _ := strconv.Atoi(m[4])
			if hour > 23 {
				return time.Time{}, false
			}
			return buildDate(year, month, day, hour, m[5], m[6])
		},
	},
}

// expandTwoDigitYear pivots at 50: 23 becomes 2023, 68 becomes 1968.
func expandTwoDigitYear(year int) int {
	if year < 50 {
		return 2000 + year
	}
	return 1900 + year
}

// normalizeYear expands two-digit years and rejects anything outside the
// plausible export range.
func normalizeYear(raw string) (int, bool) {
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	if len(raw) <= 2 {
		year = expandTwoDigitYear(year)
	}
	if year < 2009 || year > 2100 {
		return 0, false
	}
	return year, true
}

func buildDate(year, month, day, hour int, minRaw, secRaw string) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	minute, _ := strconv.Atoi(minRaw)
	if minute > 59 {
		return time.Time{}, false
	}
	second := 0
	if secRaw != "" {
		second, _ = strconv.Atoi(secRaw)
		if second > 59 {
			return time.Time{}, false
		}
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), true
}

// matchTimestamp tries the sticky format first so that structurally
// ambiguous lines (EU vs BR day-first slashes) resolve consistently within
// one file. Returns the parsed time, the matched prefix length and the
// index of the matching format.
func matchTimestamp(line string, sticky int) (time.Time, int, int, bool) {
	order := make([]int, 0, len(timestampFormats))
	if sticky >= 0 && sticky < len(timestampFormats) {
		order = append(order, sticky)
	}
	for i := range timestampFormats {
		if i == sticky {
			continue
		}
		order = append(order, i)
	}
	for _, idx := range order {
		format := timestampFormats[idx]
		m := format.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, ok := format.build(m)
		if !ok {
			continue
		}
		return ts, len(m[0]), idx, true
	}
	return time.Time{}, 0, -1, false
}
