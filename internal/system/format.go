package system

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func properUnitHelper(bytes uint64, pow uint8, unit string) string {
	quotient := bytes >> pow
	rest := bytes & ((1 << pow) - 1)
	hundredths := ((rest * 100) + ((1 << pow) >> 1)) >> pow
	if hundredths == 100 {
		hundredths = 0
		quotient++
	}
	return fmt.Sprintf("%d.%02d %s", quotient, hundredths, unit)
}

// ProperUnit converts bytes to human readable format with two decimals
func ProperUnit(byteNum uint64) string {
	switch {
	case byteNum >= 1<<50:
		return properUnitHelper(byteNum, 50, "PB")
	case byteNum >= 1<<40:
		return properUnitHelper(byteNum, 40, "TB")
	case byteNum >= 1<<30:
		return properUnitHelper(byteNum, 30, "GB")
	case byteNum >= 1<<20:
		return properUnitHelper(byteNum, 20, "MB")
	case byteNum >= 1<<10:
		return properUnitHelper(byteNum, 10, "KB")
	}
	return strconv.FormatUint(byteNum, 10) + ".00 B"
}

// Float2string converts float to string with specified precision
func Float2string(f float64, precision int) string {
	return strconv.FormatFloat(f, 'f', precision, 64)
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ConvertSeconds renders a duration as at most two units, largest first,
// e.g. "2 days and 3 hours" or "5 minutes and 1 second".
func ConvertSeconds(d time.Duration) string {
	seconds := int64(d / time.Second)
	days := seconds / 86_400
	hours := seconds % 86_400 / 3_600
	minutes := seconds % 3_600 / 60
	secs := seconds % 60

	var parts []string
	for _, p := range []struct {
		n    int64
		unit string
	}{{days, "day"}, {hours, "hour"}, {minutes, "minute"}, {secs, "second"}} {
		if p.n > 0 && len(parts) < 2 {
			parts = append(parts, plural(p.n, p.unit))
		}
	}
	if len(parts) == 0 {
		return "0 seconds"
	}
	return strings.Join(parts, " and ")
}

// Capwords capitalizes the first letter of every word.
func Capwords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
