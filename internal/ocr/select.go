package ocr

import (
	"regexp"
	"strings"
)

// coordPattern matches an x,y,z readout at the start of a cluster's text.
// Each component is a signed integer of 1-7 digits. Trailing content (for
// example an adjoined timestamp) is tolerated here and stripped later.
var coordPattern = regexp.MustCompile(`^-?\d{1,7},-?\d{1,7},-?\d{1,7}`)

// SelectionDetail records the match decision for a single cluster, for
// diagnostics.
type SelectionDetail struct {
	Text    string
	Cleaned string
	Matched bool
	Reason  string
}

// SelectBest scans clusters for the one matching the coordinate grammar and
// returns the best candidate, where best means the longest cleaned text.
// Ties keep the first (leftmost) match. Returns nil when no cluster matches.
func SelectBest(clusters []Cluster) (*Cluster, []SelectionDetail) {
	var best *Cluster
	bestLen := 0
	details := make([]SelectionDetail, 0, len(clusters))

	for i := range clusters {
		cluster := &clusters[i]
		cleaned := cleanClusterText(cluster.Text)

		detail := SelectionDetail{Text: cluster.Text, Cleaned: cleaned}
		if coordPattern.MatchString(cleaned) {
			detail.Matched = true
			detail.Reason = "matches coordinate grammar"
			if best == nil || len(cleaned) > bestLen {
				best = cluster
				bestLen = len(cleaned)
			}
		} else {
			detail.Reason = "does not match coordinate grammar"
		}
		details = append(details, detail)
	}

	if best != nil {
		ocrLog.Debug().Str("selected", best.Text).Msg("coordinate cluster selected")
	} else {
		ocrLog.Debug().Int("clusters", len(clusters)).Msg("no cluster matches coordinate grammar")
	}

	return best, details
}

// cleanClusterText strips whitespace that may have crept into decoded text.
func cleanClusterText(text string) string {
	return strings.NewReplacer(" ", "", "\t", "").Replace(text)
}
