package images

import (
	"fmt"
	"strings"

	"github.com/bilgisen/autowriter/internal/models"
)

// Embed places imgs into markdown content, one before each second-level
// heading after the first. Images that find no heading are appended.
func Embed(content string, imgs []models.Image) string {
	if len(imgs) == 0 {
		return content
	}

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines)+len(imgs)*2)
	next, headings := 0, 0
	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			headings++
			if headings > 1 && next < len(imgs) {
				out = append(out, markdownImage(imgs[next]), "")
				next++
			}
		}
		out = append(out, line)
	}
	for ; next < len(imgs); next++ {
		out = append(out, "", markdownImage(imgs[next]))
	}
	return strings.Join(out, "\n")
}

func markdownImage(img models.Image) string {
	alt := strings.NewReplacer("[", "", "]", "").Replace(img.Alt)
	return fmt.Sprintf("![%s](%s)", alt, img.URL)
}
