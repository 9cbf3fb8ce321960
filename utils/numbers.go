package utils

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// JSParseFloat follows the global parseFloat of JavaScript: leading
// whitespace is skipped and the longest prefix that forms a decimal literal
// (or Infinity) is converted. NaN is returned when no prefix qualifies.
func JSParseFloat(val string) float64 {
	val = strings.TrimLeftFunc(val, isJSSpace)
	if val == "" {
		return math.NaN()
	}

	i := 0
	sign := 1.0
	if val[0] == '+' || val[0] == '-' {
		if val[0] == '-' {
			sign = -1
		}
		i++
	}

	if strings.HasPrefix(val[i:], "Infinity") {
		return math.Inf(int(sign))
	}

	start := i
	digits := 0
	for i < len(val) && isDigit(val[i]) {
		i++
		digits++
	}
	if i < len(val) && val[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(val) && isDigit(val[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return math.NaN()
	}

	if i < len(val) && (val[i] == 'e' || val[i] == 'E') {
		j := i + 1
		if j < len(val) && (val[j] == '+' || val[j] == '-') {
			j++
		}
		k := j
		for k < len(val) && isDigit(val[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}

	lit := val[start:i]
	if strings.HasSuffix(lit, ".") {
		lit = strings.TrimSuffix(lit, ".")
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		// out of range literals saturate like the JavaScript conversion does
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return sign * f
		}
		return math.NaN()
	}
	return sign * f
}

// ArrayIndex converts a JavaScript number used as `arr[n]` into a slice
// position. Only non-negative integers below length address an element.
func ArrayIndex(n float64, length int) (int, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || n < 0 || n >= float64(length) {
		return 0, false
	}
	return int(n), true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isJSSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return unicode.IsSpace(r) && r != '\u0085'
}
