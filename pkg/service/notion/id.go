package notion

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

var hex32 = regexp.MustCompile(`^[0-9a-f]{32}$`)

// ParseDatabaseID accepts a raw database ID, with or without dashes, or a notion.so URL
// and returns the dashed 8-4-4-4-12 form the API expects
func ParseDatabaseID(input string) (string, error) {
	input = strings.TrimSpace(input)

	raw := input
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		u, err := url.Parse(input)
		if err != nil || (u.Hostname() != "www.notion.so" && u.Hostname() != "notion.so") {
			return "", goerr.Wrap(model.ErrInvalidConfig, "not a Notion URL", goerr.V("input", input))
		}
		segments := strings.Split(strings.TrimRight(u.Path, "/"), "/")
		// the ID ends the last path segment, after an optional title
		raw = segments[len(segments)-1]
		if clean := strings.ReplaceAll(raw, "-", ""); len(clean) > 32 {
			raw = clean[len(clean)-32:]
		}
	}

	id := strings.ToLower(strings.ReplaceAll(raw, "-", ""))
	if !hex32.MatchString(id) {
		return "", goerr.Wrap(model.ErrInvalidConfig, "invalid Notion database ID", goerr.V("input", input))
	}
	return id[0:8] + "-" + id[8:12] + "-" + id[12:16] + "-" + id[16:20] + "-" + id[20:32], nil
}
