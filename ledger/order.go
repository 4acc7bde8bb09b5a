package ledger

import (
	"strconv"
	"strings"
)

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// parseOrder validates trade input in the order the user sees the errors:
// symbol, then presence of shares, then its format, then its sign.
func parseOrder(symbol, shares, verb string) (string, int64, error) {
	if isBlank(symbol) {
		return "", 0, userError(ErrValidation, "ticker symbol cannot be blank")
	}
	if isBlank(shares) {
		return "", 0, userError(ErrValidation, "number of shares cannot be blank")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(shares), 10, 64)
	if err != nil {
		return "", 0, userError(ErrValidation, "shares must be a whole number")
	}
	if n < 1 {
		return "", 0, userError(ErrValidation, "you must %s 1 or more shares", verb)
	}
	return strings.ToUpper(strings.TrimSpace(symbol)), n, nil
}
