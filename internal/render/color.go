package render

import (
	"fmt"
	"image/color"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tartampluch/go-greetings/internal/config"
)

// ParseHexColor accepts #RGB, #RRGGBB and #RRGGBBAA, with or without the leading '#'.
// Alpha is straight, not premultiplied.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%s: %q", config.ErrColorInvalid, s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%s: %q: %w", config.ErrColorInvalid, s, err)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// ColorOrDefault parses s and falls back to opaque black with a warning.
func ColorOrDefault(s string) color.NRGBA {
	c, err := ParseHexColor(s)
	if err != nil {
		slog.Warn(config.MsgColorFallback,
			config.LogKeyComponent, config.CompRender,
			config.LogKeyValue, s,
			config.LogKeyError, err,
		)
		return color.NRGBA{A: 0xff}
	}
	return c
}
