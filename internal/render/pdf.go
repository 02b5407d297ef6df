package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromePDF converts report HTML to PDF by printing it in a headless Chrome
// instance. Each Convert call spawns its own browser context so concurrent
// report downloads do not share tab state.
type ChromePDF struct {
	execPath string
	timeout  time.Duration
}

// ChromeOption customizes the ChromePDF converter.
type ChromeOption func(*ChromePDF)

// WithExecPath points the converter at a specific Chrome binary instead of
// the one found on PATH.
func WithExecPath(path string) ChromeOption {
	return func(c *ChromePDF) { c.execPath = path }
}

// WithTimeout bounds a single conversion. Default is 30s.
func WithTimeout(d time.Duration) ChromeOption {
	return func(c *ChromePDF) { c.timeout = d }
}

// NewChromePDF builds the headless Chrome converter.
func NewChromePDF(opts ...ChromeOption) *ChromePDF {
	c := &ChromePDF{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert prints the given HTML document to A4 PDF.
func (c *ChromePDF) Convert(ctx context.Context, html []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.4).
				WithMarginBottom(0.4).
				WithMarginLeft(0.4).
				WithMarginRight(0.4).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("print to pdf: %w", err)
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf conversion: %w", err)
	}
	return pdf, nil
}
