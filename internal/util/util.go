package util

import "strings"

// MakeTextList joins items into a human-readable list with an Oxford
// comma, e.g. "NP, VP, and S" -- used for reporting which gold
// constituents a parse matched.
func MakeTextList(items []string) string {
	if len(items) < 1 {
		return ""
	}

	output := ""

	if len(items) == 1 {
		output += items[0]
	} else if len(items) == 2 {
		output += items[0] + " and " + items[1]
	} else {
		// if its more than two, use an oxford comma
		items[len(items)-1] = "and " + items[len(items)-1]
		output += strings.Join(items, ", ")
	}

	return output
}
