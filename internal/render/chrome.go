package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFPrinter turns an HTML document into PDF bytes.
type PDFPrinter interface {
	PrintPDF(ctx context.Context, html []byte) ([]byte, error)
}

// A4 in inches, as expected by Page.printToPDF.
const (
	a4Width  = 8.27
	a4Height = 11.69
	a4Margin = 0.4
)

// ChromePrinter prints through a headless Chrome started per call.
type ChromePrinter struct {
	execPath string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewChromePrinter returns a printer. An empty execPath lets chromedp
// find the browser.
func NewChromePrinter(execPath string, timeout time.Duration, logger *slog.Logger) *ChromePrinter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromePrinter{execPath: execPath, timeout: timeout, logger: logger}
}

// PrintPDF loads html into a blank page with JavaScript disabled and
// prints it on A4. Long content flows onto further pages.
func (p *ChromePrinter) PrintPDF(ctx context.Context, html []byte) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Flag("blink-settings", "scriptEnabled=false"),
	)
	if p.execPath != "" {
		opts = append(opts, chromedp.ExecPath(p.execPath))
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		emulation.SetScriptExecutionDisabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(a4Margin).
				WithMarginBottom(a4Margin).
				WithMarginLeft(a4Margin).
				WithMarginRight(a4Margin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("printing PDF with chrome: %w", err)
	}

	p.logger.Debug("chrome printed PDF", "bytes", len(pdf), "duration", time.Since(start))
	return pdf, nil
}
