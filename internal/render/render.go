// Package render draws greeting text onto template images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"strings"

	"github.com/tartampluch/go-greetings/internal/config"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// FontSpec describes the typeface used for a card.
type FontSpec struct {
	Path  string // Empty selects the embedded face.
	Size  float64
	Color color.Color // nil draws black
}

// Request is everything needed to render one card.
type Request struct {
	Occasion     string
	TemplatePath string // Empty selects a generated placeholder.
	Lines        []string
	Position     image.Point
	Font         FontSpec
	CenterAlign  bool
}

// Card is a rendered and encoded greeting card.
type Card struct {
	Image       *image.RGBA
	Data        []byte
	Format      string
	ContentType string
}

// Ext is the file extension for the card's format.
func (c *Card) Ext() string {
	if c.Format == config.ImageFormatJPEG {
		return config.ImageFormatJPG
	}
	return config.ImageFormatPNG
}

// EmbedName is the attachment name and Content-ID used in greeting emails.
func (c *Card) EmbedName() string {
	return config.EmbedBaseName + "." + c.Ext()
}

type templateEntry struct {
	img image.Image
	err error
}

// Renderer renders cards for one run. Templates and faces are loaded once
// and reused; a template that failed to load keeps failing for the run.
// A Renderer is not safe for concurrent use.
type Renderer struct {
	Format string

	templates map[string]templateEntry
	faces     map[faceKey]loadedFace
}

// NewRenderer returns a Renderer encoding cards as png or jpeg.
func NewRenderer(format string) *Renderer {
	f := strings.ToLower(format)
	if f == config.ImageFormatJPG {
		f = config.ImageFormatJPEG
	}
	if f != config.ImageFormatJPEG {
		f = config.ImageFormatPNG
	}
	return &Renderer{
		Format:    f,
		templates: make(map[string]templateEntry),
		faces:     make(map[faceKey]loadedFace),
	}
}

// Render draws req onto a copy of its template and encodes the result.
func (r *Renderer) Render(req Request) (*Card, error) {
	base, err := r.template(req)
	if err != nil {
		return nil, err
	}

	bounds := base.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, base, bounds.Min, draw.Src)

	r.drawText(canvas, req)

	var buf bytes.Buffer
	card := &Card{Image: canvas, Format: r.Format}
	switch r.Format {
	case config.ImageFormatJPEG:
		card.ContentType = config.MimeJPEG
		err = jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: config.JPEGQuality})
	default:
		card.ContentType = config.MimePNG
		err = png.Encode(&buf, canvas)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCardEncode, err)
	}
	card.Data = buf.Bytes()

	slog.Debug(config.MsgCardRendered,
		config.LogKeyComponent, config.CompRender,
		config.LogKeyOccasion, req.Occasion,
		config.LogKeySizeBytes, len(card.Data),
	)
	return card, nil
}

// drawText stacks the lines starting at Position.Y, the top of the first line.
// Center alignment replaces the x coordinate only.
func (r *Renderer) drawText(dst *image.RGBA, req Request) {
	lf := r.face(req.Font)
	ascent := lf.face.Metrics().Ascent.Ceil()
	bounds := dst.Bounds()

	ink := req.Font.Color
	if ink == nil {
		ink = color.Black
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: lf.face,
	}
	for i, line := range req.Lines {
		x := req.Position.X
		if req.CenterAlign {
			width := d.MeasureString(line).Ceil()
			x = bounds.Min.X + (bounds.Dx()-width)/2
		}
		y := req.Position.Y + i*lf.lineHeight + ascent
		d.Dot = fixed.P(x, y)
		d.DrawString(line)
	}
}

// template returns the cached base image for the request.
func (r *Renderer) template(req Request) (image.Image, error) {
	key := req.TemplatePath
	if key == "" {
		key = "placeholder:" + req.Occasion
	}
	if e, ok := r.templates[key]; ok {
		return e.img, e.err
	}

	var e templateEntry
	if req.TemplatePath == "" {
		slog.Info(config.MsgPlaceholder,
			config.LogKeyComponent, config.CompRender,
			config.LogKeyOccasion, req.Occasion,
		)
		e.img = Placeholder(req.Occasion, config.PlaceholderWidth, config.PlaceholderHeight)
	} else {
		var format string
		e.img, format, e.err = loadTemplate(req.TemplatePath)
		if e.err == nil {
			slog.Info(config.MsgTemplateCached,
				config.LogKeyComponent, config.CompRender,
				config.LogKeyOccasion, req.Occasion,
				config.LogKeyPath, req.TemplatePath,
				config.LogKeyFormat, format,
			)
		}
	}
	r.templates[key] = e
	return e.img, e.err
}

func loadTemplate(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", &config.AssetNotFoundError{Kind: config.AssetTemplate, Path: path, Cause: err}
		}
		return nil, "", fmt.Errorf("%s: %w", config.ErrTemplateMissing, err)
	}
	defer func() { _ = f.Close() }()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %s: %w", config.ErrTemplateDecode, path, err)
	}
	return img, format, nil
}

type palette struct {
	background, border color.RGBA
}

var placeholderPalettes = map[string]palette{
	config.OccasionBirthday: {
		background: color.RGBA{R: 0xfd, G: 0xf6, B: 0xec, A: 0xff},
		border:     color.RGBA{R: 0x4b, G: 0x44, B: 0x6a, A: 0xff},
	},
	config.OccasionAnniversary: {
		background: color.RGBA{R: 0xee, G: 0xf1, B: 0xfa, A: 0xff},
		border:     color.RGBA{R: 0x72, G: 0x71, B: 0x9f, A: 0xff},
	},
}

// Placeholder builds a plain card background with a border, used when no
// template is configured for an occasion.
func Placeholder(occasion string, width, height int) *image.RGBA {
	p, ok := placeholderPalettes[occasion]
	if !ok {
		p = palette{background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, border: color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}}
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(p.border), image.Point{}, draw.Src)

	inner := img.Bounds().Inset(config.PlaceholderBorder)
	draw.Draw(img, inner, image.NewUniform(p.background), image.Point{}, draw.Src)
	return img
}
