package citui

import (
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/browser"
)

var quietBrowser sync.Once

// systemOpener opens url in the default browser. The launcher's own output
// is discarded because the terminal belongs to the UI.
func systemOpener(url string) error {
	quietBrowser.Do(func() {
		browser.Stdout = io.Discard
		browser.Stderr = io.Discard
	})
	return browser.OpenURL(url)
}

// commandOpener returns an opener that runs argv followed by the URL without
// waiting for it to exit.
func commandOpener(argv []string) func(string) error {
	return func(url string) error {
		args := append(append([]string{}, argv[1:]...), url)
		cmd := exec.Command(argv[0], args...)
		if err := cmd.Start(); err != nil {
			return err
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}
