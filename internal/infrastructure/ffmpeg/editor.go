package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"ClipPilot/internal/ports"
)

// maxCaptionLen bounds the drawtext caption, in runes.
const maxCaptionLen = 100

// Editor assembles the final short: crops the source to portrait, burns the
// caption, prepends a thumbnail intro and encodes H.264/AAC.
type Editor struct {
	tempDir string
	logger  *slog.Logger
}

var _ ports.VideoEditor = (*Editor)(nil)

// NewEditor writes intermediate clips into tempDir.
func NewEditor(tempDir string, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{tempDir: tempDir, logger: logger}
}

// Compose produces <stem>_final.mp4 next to the source media.
func (e *Editor) Compose(ctx context.Context, mediaPath, caption, thumbnailPath string) (string, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return "", fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))

	intro := filepath.Join(e.tempDir, stem+"_intro.mp4")
	if err := e.renderIntro(ctx, thumbnailPath, intro); err != nil {
		return "", fmt.Errorf("render intro: %w", err)
	}

	body := filepath.Join(e.tempDir, stem+"_body.mp4")
	if err := e.renderBody(ctx, mediaPath, caption, body); err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}

	out := filepath.Join(filepath.Dir(mediaPath), stem+"_final.mp4")
	if err := e.concat(ctx, []string{intro, body}, out); err != nil {
		return "", fmt.Errorf("concat clips: %w", err)
	}

	e.logger.Info("final video ready", "path", out)
	return out, nil
}

// renderIntro turns the thumbnail into a 2 second clip with silent audio so
// the concat inputs share stream layouts.
func (e *Editor) renderIntro(ctx context.Context, thumbnailPath, out string) error {
	return e.run(ctx,
		"-loop", "1", "-t", "2", "-i", thumbnailPath,
		"-f", "lavfi", "-t", "2", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-vf", "scale=1080:1920,setsar=1",
		"-r", "24",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-shortest",
		out,
	)
}

// renderBody crops the source to 9:16 and draws the caption near the bottom.
func (e *Editor) renderBody(ctx context.Context, mediaPath, caption, out string) error {
	caption = truncateRunes(caption, maxCaptionLen)
	filter := fmt.Sprintf(
		"crop='min(iw,ih*9/16)':ih,scale=1080:1920,setsar=1,drawtext=text='%s':fontcolor=white:fontsize=40:box=1:boxcolor=black@0.6:boxborderw=10:x=(w-text_w)/2:y=h-text_h-80",
		escapeDrawtext(caption))

	return e.run(ctx,
		"-i", mediaPath,
		"-vf", filter,
		"-r", "24",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		out,
	)
}

// concat joins normalized clips via the concat demuxer.
func (e *Editor) concat(ctx context.Context, clips []string, out string) error {
	listPath := filepath.Join(e.tempDir, filepath.Base(out)+".txt")
	var list strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve clip path: %w", err)
		}
		fmt.Fprintf(&list, "file '%s'\n", abs)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	return e.run(ctx,
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
		out,
	)
}

func (e *Editor) run(ctx context.Context, args ...string) error {
	full := append([]string{"-y"}, args...)
	cmd := exec.CommandContext(ctx, "ffmpeg", full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 512 {
			detail = detail[len(detail)-512:]
		}
		return fmt.Errorf("ffmpeg: %s: %w", detail, err)
	}
	return nil
}

// truncateRunes limits text to a rune count, keeping valid UTF-8.
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// escapeDrawtext protects the characters drawtext treats specially.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}
