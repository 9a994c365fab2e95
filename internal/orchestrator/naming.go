package orchestrator

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"tubefetch/internal/consts"
	"tubefetch/internal/entity"
)

// maxTitleRunes keeps file names well under the usual 255 byte limit.
const maxTitleRunes = 100

// FormatExpression returns the yt-dlp format selector for a height ceiling, most
// preferred alternative first:
//
//  1. mp4 video up to height merged with m4a audio
//  2. mp4 video up to height
//  3. combined mp4 up to height
//  4. any mp4
//  5. whatever is best
func FormatExpression(height int) string {
	return fmt.Sprintf(
		"bestvideo[height<=%[1]d][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=%[1]d][ext=mp4]/best[height<=%[1]d][ext=mp4]/best[ext=mp4]/best",
		height,
	)
}

// Sanitize keeps letters, digits, '_' and '-', turning everything else, spaces
// included, into '_'. A blank title becomes consts.FallbackTitle.
func Sanitize(title string) string {
	if strings.TrimSpace(title) == "" {
		return consts.FallbackTitle
	}

	var b strings.Builder

	n := 0

	for _, r := range title {
		if n == maxTitleRunes {
			break
		}

		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}

		n++
	}

	return b.String()
}

// OutputPath is <dir>/<sanitized title>_<resolution>.mp4.
func OutputPath(req entity.DownloadRequest) string {
	name := fmt.Sprintf("%s_%s.%s", Sanitize(req.Title), req.Resolution, consts.TargetContainer)

	return filepath.Join(req.Dir, name)
}
