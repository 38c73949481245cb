package validation

import (
	"strconv"
	"strings"
)

// NormalizeRUT strips dots and spaces and upper-cases the check digit: "12.345.678-k" becomes
// "12345678-K". Input without a dash is split before its last character.
func NormalizeRUT(rut string) string {
	r := strings.ToUpper(strings.NewReplacer(".", "", " ", "").Replace(strings.TrimSpace(rut)))
	if r == "" {
		return ""
	}
	if !strings.Contains(r, "-") && len(r) > 1 {
		r = r[:len(r)-1] + "-" + r[len(r)-1:]
	}
	return r
}

// ValidRUT checks the modulo-11 verification digit.
func ValidRUT(rut string) bool {
	body, dv, ok := strings.Cut(NormalizeRUT(rut), "-")
	if !ok || len(body) < 7 || len(body) > 8 || len(dv) != 1 {
		return false
	}
	if _, err := strconv.Atoi(body); err != nil {
		return false
	}
	return CheckDigit(body) == dv
}

// CheckDigit computes the verification digit for the numeric part of a RUT.
func CheckDigit(body string) string {
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}

	switch rest := 11 - sum%11; rest {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(rest)
	}
}

// FormatRUT renders a RUT with thousands dots: "123456785" becomes "12.345.678-5".
// Invalid input is returned normalized but undotted.
func FormatRUT(rut string) string {
	n := NormalizeRUT(rut)
	body, dv, ok := strings.Cut(n, "-")
	if !ok || !ValidRUT(n) {
		return n
	}

	var b strings.Builder
	for i, c := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	return b.String() + "-" + dv
}
