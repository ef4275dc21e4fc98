package hubspace

import (
	"errors"
	"fmt"
)

var ErrNotInList = errors.New("item not in list")

// OrderedListItemToPercentage maps an item of an ordered list to a
// percentage: index*100/(count-1), floored. The first item maps to 0 and
// the last to 100. A single-item list maps its item to 100.
func OrderedListItemToPercentage(list []string, item string) (int, error) {
	if len(list) == 0 {
		return 0, fmt.Errorf("%w: empty list", ErrNotInList)
	}
	idx := -1
	for i, v := range list {
		if v == item {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNotInList, item)
	}
	if len(list) == 1 {
		return 100, nil
	}
	return idx * 100 / (len(list) - 1), nil
}

// PercentageToOrderedListItem maps a percentage back to the nearest list
// item: list[round(pct*(count-1)/100)], clamped to the list bounds.
func PercentageToOrderedListItem(list []string, percentage int) (string, error) {
	if len(list) == 0 {
		return "", errors.New("empty list")
	}
	idx := (percentage*(len(list)-1) + 50) / 100
	if idx < 0 {
		idx = 0
	} else if idx >= len(list) {
		idx = len(list) - 1
	}
	return list[idx], nil
}
