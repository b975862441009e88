package shared

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// launchers maps GOOS to the command that hands a URL to the desktop.
var launchers = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

var getRuntime = func() string { return runtime.GOOS }

// OpenBrowser opens rawURL in the default browser. Only http and https URLs are accepted.
func OpenBrowser(rawURL string) error {
	cmd, err := browserCommand(getRuntime(), rawURL)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

func browserCommand(goos, rawURL string) (*exec.Cmd, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: not a web URL: %q", ErrInvalidArgument, rawURL)
	}
	launcher, ok := launchers[goos]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
	args := append(launcher[1:len(launcher):len(launcher)], u.String())
	return exec.Command(launcher[0], args...), nil
}
