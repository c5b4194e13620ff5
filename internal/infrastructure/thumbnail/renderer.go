package thumbnail

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/ports"
)

const (
	width  = 1080
	height = 1920

	titleWrapWidth = 28 // characters per line
	maxTitleLines  = 4
	badgeText      = "VIRAL"
)

// Palette carries the configured thumbnail colors.
type Palette struct {
	GradientStart [3]uint8
	GradientEnd   [3]uint8
	Text          [3]uint8
	Badge         [3]uint8
}

// Renderer draws vertical gradient thumbnails with the localized title and
// a badge, written as PNG into the thumbnails directory.
type Renderer struct {
	dir     string
	palette Palette
	logger  *slog.Logger
}

var _ ports.ThumbnailRenderer = (*Renderer)(nil)

// NewRenderer wires the output directory and color palette.
func NewRenderer(dir string, palette Palette, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{dir: dir, palette: palette, logger: logger}
}

// Render produces <videoID>_thumb.png and returns its path.
func (r *Renderer) Render(ctx context.Context, selection domain.RankedSelection, meta domain.LocalizedMetadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	r.drawGradient(img)

	title := meta.Title
	if title == "" {
		title = selection.Candidate.Title
	}
	r.drawTitle(img, title)
	r.drawBadge(img)

	id := selection.Candidate.ID
	if id == "" {
		id = "unknown"
	}
	path := filepath.Join(r.dir, fmt.Sprintf("%s_thumb.png", id))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create thumbnail file: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close thumbnail file: %w", err)
	}

	r.logger.Debug("thumbnail rendered", "video", id, "path", path)
	return path, nil
}

func (r *Renderer) drawGradient(img *image.RGBA) {
	start, end := r.palette.GradientStart, r.palette.GradientEnd
	for y := 0; y < height; y++ {
		c := color.RGBA{
			R: lerp(start[0], end[0], y, height),
			G: lerp(start[1], end[1], y, height),
			B: lerp(start[2], end[2], y, height),
			A: 255,
		}
		row := image.Rect(0, y, width, y+1)
		draw.Draw(img, row, &image.Uniform{C: c}, image.Point{}, draw.Src)
	}
}

func (r *Renderer) drawTitle(img *image.RGBA, title string) {
	lines := wrapText(title, titleWrapWidth)
	if len(lines) > maxTitleLines {
		lines = lines[:maxTitleLines]
	}

	textColor := image.NewUniform(color.RGBA{
		R: r.palette.Text[0], G: r.palette.Text[1], B: r.palette.Text[2], A: 255,
	})

	y := 800
	for _, line := range lines {
		drawer := &font.Drawer{
			Dst:  img,
			Src:  textColor,
			Face: basicfont.Face7x13,
			Dot:  fixed.P(100, y),
		}
		drawer.DrawString(line)
		y += 40
	}
}

func (r *Renderer) drawBadge(img *image.RGBA) {
	badge := image.Rect(400, 1600, 680, 1700)
	badgeColor := color.RGBA{
		R: r.palette.Badge[0], G: r.palette.Badge[1], B: r.palette.Badge[2], A: 255,
	}
	draw.Draw(img, badge, &image.Uniform{C: badgeColor}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(500, 1655),
	}
	drawer.DrawString(badgeText)
}

func lerp(from, to uint8, step, total int) uint8 {
	return uint8(int(from) + (int(to)-int(from))*step/total)
}

// wrapText breaks text into lines no wider than limit characters, splitting
// on spaces. A single overlong word becomes its own line.
func wrapText(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > limit {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
