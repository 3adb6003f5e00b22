// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/kspmod/kspmod/internal/issue"
	"github.com/kspmod/kspmod/internal/tui"

	"github.com/charmbracelet/log"
)

const (
	// DefaultChunkSize is the number of bytes read per step.
	DefaultChunkSize = 32 * 1024
	// DefaultBarWidth is the progress bar width in cells.
	DefaultBarWidth = 40
)

type (
	// Downloader streams an HTTP response body to a file while drawing a
	// progress bar. Requests are never retried.
	Downloader struct {
		client             *http.Client
		chunkSize          int
		barWidth           int
		out                io.Writer
		allowUnknownLength bool
		userAgent          string
		logger             *log.Logger
	}

	// DownloaderOption configures a Downloader.
	DownloaderOption func(*Downloader)

	// RequestEditor adjusts an outgoing request, e.g. to add credentials.
	RequestEditor func(*http.Request)
)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) { d.client = c }
}

// WithChunkSize sets the read size; non-positive values are ignored.
func WithChunkSize(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithBarWidth sets the progress bar width; non-positive values are ignored.
func WithBarWidth(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.barWidth = n
		}
	}
}

// WithProgressOutput sets where the progress bar is drawn.
func WithProgressOutput(w io.Writer) DownloaderOption {
	return func(d *Downloader) { d.out = w }
}

// WithAllowUnknownLength accepts responses without Content-Length, showing
// a byte counter instead of a bar.
func WithAllowUnknownLength(allow bool) DownloaderOption {
	return func(d *Downloader) { d.allowUnknownLength = allow }
}

// WithDownloadUserAgent sets the User-Agent header.
func WithDownloadUserAgent(ua string) DownloaderOption {
	return func(d *Downloader) { d.userAgent = ua }
}

// WithDownloadLogger sets the logger.
func WithDownloadLogger(l *log.Logger) DownloaderOption {
	return func(d *Downloader) { d.logger = l }
}

// NewDownloader creates a Downloader with 32 KiB chunks and a 40 cell bar
// drawn on stdout.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client:    http.DefaultClient,
		chunkSize: DefaultChunkSize,
		barWidth:  DefaultBarWidth,
		out:       os.Stdout,
		userAgent: "kspmod/dev",
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads rawURL to dest and returns the number of bytes written.
// A non-2xx status, a missing Content-Length (unless allowed) or a failure
// mid-stream is an error; dest may then hold a partial file.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dest string, edit RequestEditor) (written int64, err error) {
	ec := issue.NewErrorContext().
		WithOperation("download mod").
		WithResource(redactURL(rawURL)).
		WithIssue(issue.DownloadFailedId)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return 0, ec.Wrap(err).BuildError()
	}
	req.Header.Set("User-Agent", d.userAgent)
	if edit != nil {
		edit(req)
	}

	d.logger.Debug("downloading", "url", redactURL(rawURL), "dest", dest)
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, ec.WithSuggestion("Check your network connection").Wrap(err).BuildError()
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, ec.WithSuggestion("Check that the URL is correct").
			Wrap(fmt.Errorf("unexpected status %s", resp.Status)).
			BuildError()
	}

	total := resp.ContentLength
	if total < 0 && !d.allowUnknownLength {
		return 0, ec.WithIssue(issue.UnknownLengthId).
			WithSuggestion("Set download.allow_unknown_length to accept such servers").
			Wrap(ErrUnknownLength).
			BuildError()
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, ec.Wrap(err).BuildError()
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = ec.Wrap(closeErr).BuildError()
		}
	}()

	bar := tui.NewProgressBar(d.out, d.barWidth, total)
	buf := make([]byte, d.chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				fmt.Fprintln(d.out)
				return written, ec.Wrap(writeErr).BuildError()
			}
			written += int64(n)
			bar.Update(written)
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			fmt.Fprintln(d.out)
			return written, ec.WithSuggestion("Re-run the install; downloads are not resumed").
				Wrap(readErr).
				BuildError()
		}
	}
	bar.Finish(written)

	d.logger.Debug("download complete", "bytes", written)
	return written, nil
}

// redactURL strips query parameters and fragments from a URL for safe
// inclusion in messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
