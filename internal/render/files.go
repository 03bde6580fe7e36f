package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/tartampluch/go-greetings/internal/config"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FileName returns {occasion}_{first}_{last}_{yyyymmdd}.{ext} with the
// names transliterated to ASCII where possible.
func FileName(occasion, first, last string, day time.Time, ext string) string {
	return fmt.Sprintf(config.FormatCardFile,
		occasion,
		SanitizeName(first),
		SanitizeName(last),
		day.Format(config.DateFormatStamp),
		ext,
	)
}

// SanitizeName strips diacritics and replaces anything that is not a letter,
// digit or underscore with '-'. Runs of '-' collapse into one.
func SanitizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		plain = s
	}

	var b strings.Builder
	dash := false
	for _, r := range plain {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return config.FallbackFileName
	}
	return out
}

// Save writes card under dir with the given name and returns the full path.
func Save(card *Card, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, card.Data, config.FilePermUserRW); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCardSave, err)
	}
	slog.Debug(config.MsgCardSaved,
		config.LogKeyComponent, config.CompRender,
		config.LogKeyFile, path,
	)
	return path, nil
}
