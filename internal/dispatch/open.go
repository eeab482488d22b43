package dispatch

import (
	"fmt"
	"os/exec"
	"runtime"
)

// openInBrowser hands a URL to the platform opener. The child is detached;
// the task only reports whether the launch itself worked.
func openInBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	// Reap the child so it doesn't linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}
