// Package utils provides small helpers shared by the HTTP layer. They carry
// no relay semantics.
package utils

import (
	"strconv"
	"strings"
)

// ParseID parses a positive decimal identifier such as a participant or wire
// id. Surrounding whitespace is ignored.
//
//	id, ok := utils.ParseID("42")  // 42, true
//	_, ok = utils.ParseID("0")     // false
//	_, ok = utils.ParseID("x")     // false
func ParseID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
