package model

import "strings"

const requirementBulletChars = "-*0123456789. "

// ParseRequirements splits free text into requirement statements, one per line.
// Leading bullets and numbering are removed and lines of three characters or fewer are dropped.
func ParseRequirements(text string) []string {
	var reqs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, requirementBulletChars)
		line = strings.TrimSpace(line)
		if len([]rune(line)) > 3 {
			reqs = append(reqs, line)
		}
	}
	return reqs
}
