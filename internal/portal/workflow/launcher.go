package workflow

import (
	"errors"
	"fmt"

	"github.com/pkg/browser"
)

// ErrPopupBlocked means the payment window could not be opened. The payment
// reference is kept so the window can be reopened.
var ErrPopupBlocked = errors.New("payment window was blocked: allow pop-ups and try again")

// Launcher opens the external payment page.
type Launcher interface {
	Open(url string) error
}

type LauncherFunc func(url string) error

func (f LauncherFunc) Open(url string) error { return f(url) }

// BrowserLauncher opens the page in the system browser.
type BrowserLauncher struct{}

func (BrowserLauncher) Open(url string) error {
	if err := browser.OpenURL(url); err != nil {
		return fmt.Errorf("%w (%v)", ErrPopupBlocked, err)
	}
	return nil
}

// Navigator leaves the flow once it is complete.
type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }
