package utils

import "github.com/gosimple/slug"

// MaxSlugLength bounds generated slugs
const MaxSlugLength = 80

func init() {
	slug.MaxLength = MaxSlugLength
}

// Slugify converts s into a lowercase, hyphenated URL slug
func Slugify(s string) string {
	return slug.Make(s)
}
