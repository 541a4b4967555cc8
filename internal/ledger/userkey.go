package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// UserKey builds the composite identity stored in the ledger: the display
// name and the numeric transport id, joined so the id can be recovered for
// reminder delivery.
func UserKey(fullName string, id int64) string {
	return fmt.Sprintf("%s | %d", fullName, id)
}

// SplitUserKey recovers the display name and numeric id from a stored key.
// Names may themselves contain " | ", so the split is on the last separator.
func SplitUserKey(key string) (name string, id int64, ok bool) {
	idx := strings.LastIndex(key, " | ")
	if idx < 0 {
		return "", 0, false
	}
	name = key[:idx]
	id, err := strconv.ParseInt(strings.TrimSpace(key[idx+3:]), 10, 64)
	if err != nil || name == "" {
		return "", 0, false
	}
	return name, id, true
}
