package types

import (
	"strconv"
	"strings"
)

// IsTruthy reports whether a CFML attribute string denotes a true boolean:
// "true" or "yes" in any case, or any non-zero number.
func IsTruthy(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "true", "yes":
		return true
	case "", "false", "no":
		return false
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n != 0
	}
	return false
}
