package render

import (
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pkg/browser"
)

// Opener shows a written artifact to the user
type Opener interface {
	Open(path string) error
}

// BrowserOpener opens files with the platform default application
type BrowserOpener struct{}

// NewBrowserOpener discards the helper process output
func NewBrowserOpener() *BrowserOpener {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &BrowserOpener{}
}

// Open launches the default viewer for path
func (o *BrowserOpener) Open(path string) error {
	if err := browser.OpenFile(path); err != nil {
		return goerr.Wrap(err, "failed to open viewer", goerr.V("path", path))
	}
	return nil
}

// NopOpener does nothing. Used when the viewer is disabled.
type NopOpener struct{}

// Open implements Opener
func (NopOpener) Open(string) error { return nil }
