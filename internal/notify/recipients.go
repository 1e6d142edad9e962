// Package notify fans alerts out to SMS and email recipients.
package notify

import (
	"fmt"
	"strconv"

	"safesupport/pkg/platform/strings"
)

// NormalizeRecipients turns the "to" field of an alert request into a clean
// recipient list. A string is split on commas; an array is taken element by
// element; any other scalar is a single recipient. Values are trimmed, blanks
// dropped and duplicates removed keeping the first occurrence. Array elements
// are not split further.
func NormalizeRecipients(to any) []string {
	var list []string
	switch v := to.(type) {
	case nil:
	case string:
		list = strings.SplitList(v)
	case []string:
		list = v
	case []any:
		list = make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := scalarString(item); ok {
				list = append(list, s)
			}
		}
	default:
		if s, ok := scalarString(v); ok {
			list = []string{s}
		}
	}
	out := strings.DedupeAndTrim(list)
	if out == nil {
		return []string{}
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case fmt.Stringer:
		return x.String(), true
	case int, int64, int32, uint, uint64:
		return fmt.Sprint(x), true
	default:
		return "", false
	}
}
