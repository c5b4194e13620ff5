package youtube

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/ports"
)

// Downloader fetches source media files with yt-dlp.
type Downloader struct {
	outputDir string
	binary    string
	logger    *slog.Logger
}

var _ ports.MediaFetcher = (*Downloader)(nil)

// NewDownloader writes downloads into outputDir, named by video ID.
func NewDownloader(outputDir string, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{outputDir: outputDir, binary: "yt-dlp", logger: logger}
}

// Fetch downloads one candidate and returns the resulting file path.
func (d *Downloader) Fetch(ctx context.Context, candidate domain.Candidate) (string, error) {
	if _, err := exec.LookPath(d.binary); err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", d.binary, err)
	}

	template := filepath.Join(d.outputDir, "%(id)s.%(ext)s")
	args := []string{
		"--quiet",
		"--no-warnings",
		"--no-simulate",
		"--format", "best[height<=1080]",
		"--remux-video", "mp4",
		"-o", template,
		"--print", "after_move:filepath",
		candidate.URL,
	}

	d.logger.Info("downloading video", "video", candidate.ID)

	cmd := exec.CommandContext(ctx, d.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("yt-dlp: %s: %w", detail, err)
		}
		return "", fmt.Errorf("yt-dlp: %w", err)
	}

	path := lastLine(stdout.String())
	if path == "" || path == "NA" {
		return "", fmt.Errorf("yt-dlp printed no output path for %s", candidate.ID)
	}
	return path, nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
