package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tartampluch/go-greetings/internal/config"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const fontDPI = 72

type faceKey struct {
	path string
	size float64
}

// loadedFace is a face plus the line height used to stack lines.
type loadedFace struct {
	face       font.Face
	lineHeight int
}

// face resolves the configured font, then Go Regular, then the fixed 7x13
// bitmap face. Font problems never fail a render.
func (r *Renderer) face(fs FontSpec) loadedFace {
	key := faceKey{path: fs.Path, size: fs.Size}
	if f, ok := r.faces[key]; ok {
		return f
	}

	var loaded loadedFace
	if fs.Path != "" {
		f, err := openTypeFace(fs.Path, fs.Size)
		if err == nil {
			loaded = sized(f, fs.Size)
		} else {
			slog.Warn(config.MsgFontFallback,
				config.LogKeyComponent, config.CompRender,
				config.LogKeyPath, fs.Path,
				config.LogKeyError, err,
			)
		}
	}
	if loaded.face == nil {
		if f, err := parseFace(goregular.TTF, fs.Size); err == nil {
			loaded = sized(f, fs.Size)
		} else {
			loaded = loadedFace{
				face:       basicfont.Face7x13,
				lineHeight: basicfont.Face7x13.Metrics().Height.Ceil() + config.LineSpacing,
			}
		}
	}

	r.faces[key] = loaded
	return loaded
}

func sized(f font.Face, size float64) loadedFace {
	return loadedFace{face: f, lineHeight: int(size) + config.LineSpacing}
}

func openTypeFace(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &config.AssetNotFoundError{Kind: config.AssetFont, Path: path, Cause: err}
		}
		return nil, fmt.Errorf("%s: %w", config.ErrFontMissing, err)
	}
	return parseFace(data, size)
}

func parseFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFontParse, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFontParse, err)
	}
	return face, nil
}
