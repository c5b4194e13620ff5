package tiktok

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"ClipPilot/internal/domain"
	"ClipPilot/internal/ports"
)

const (
	loginURL  = "https://www.tiktok.com/login"
	uploadURL = "https://www.tiktok.com/upload"

	fileInputSelector = `input[type="file"]`
	captionSelector   = `div[contenteditable="true"]`
	postButtonText    = `//button[contains(., "Post")]`
)

// Publisher uploads finished videos through a browser session. Login is an
// interactive one-time setup; the captured cookies are reused afterwards.
type Publisher struct {
	store    *CookieStore
	headless bool
	logger   *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher wires the cookie store.
func NewPublisher(store *CookieStore, headless bool, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{store: store, headless: headless, logger: logger}
}

// Login opens a visible browser on the login page, waits for the user to
// authenticate, then captures and persists the session cookies. Any stale
// stored session is discarded first.
func (p *Publisher) Login(ctx context.Context) error {
	if err := p.store.Clear(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear stale session: %w", err)
	}

	browserCtx, cancel := p.newBrowser(ctx, false)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	p.logger.Info("log in inside the browser window; waiting for session cookie")

	// Poll until the session cookie appears or the context expires.
	var cookies []*network.Cookie
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		for {
			all, err := storage.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			for _, c := range all {
				if c.Name == sessionCookie {
					cookies = all
					return nil
				}
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}))
	if err != nil {
		return fmt.Errorf("wait for login: %w", err)
	}

	if err := p.store.Save(cookies); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	p.logger.Info("session saved", "cookies", len(cookies))
	return nil
}

// Publish uploads the media file with its caption using the stored session.
func (p *Publisher) Publish(ctx context.Context, mediaPath string, meta domain.LocalizedMetadata) error {
	if !p.store.IsValid() {
		return fmt.Errorf("stored session missing or expired, run the login setup first")
	}
	stored, err := p.store.Load()
	if err != nil {
		return fmt.Errorf("load stored session: %w", err)
	}

	browserCtx, cancel := p.newBrowser(ctx, p.headless)
	defer cancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, 10*time.Minute)
	defer timeoutCancel()

	if err := p.injectCookies(browserCtx, stored.Cookies); err != nil {
		return fmt.Errorf("inject session cookies: %w", err)
	}

	caption := fmt.Sprintf("%s %s", meta.Caption, strings.Join(meta.Hashtags, " "))

	p.logger.Info("uploading via browser", "media", mediaPath)
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(uploadURL),
		chromedp.WaitVisible(fileInputSelector, chromedp.ByQuery),
		chromedp.SetUploadFiles(fileInputSelector, []string{mediaPath}, chromedp.ByQuery),
		chromedp.Sleep(10*time.Second),
		chromedp.WaitVisible(captionSelector, chromedp.ByQuery),
		chromedp.Click(captionSelector, chromedp.ByQuery),
		chromedp.SendKeys(captionSelector, caption, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.Click(postButtonText, chromedp.BySearch),
		chromedp.Sleep(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("browser upload: %w", err)
	}

	p.logger.Info("upload submitted", "media", mediaPath)
	return nil
}

func (p *Publisher) newBrowser(ctx context.Context, headless bool) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		browserCancel()
		allocCancel()
	}
	return browserCtx, cancel
}

func (p *Publisher) injectCookies(ctx context.Context, cookies []*network.Cookie) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite).
				Do(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	}))
}
