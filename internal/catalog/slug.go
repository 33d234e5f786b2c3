package catalog

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var slugStripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the name and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStripRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// slugWithSuffix appends a short random fragment, used when the plain slug
// collides with an existing row.
func slugWithSuffix(slug string) string {
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return slug + "-" + suffix
}
