package cmd

import (
	"os/exec"
	"runtime"
)

// openBrowser makes a best-effort attempt to open the verification URL.
// Failures are ignored; the URL is always printed alongside the user code.
func (rt *runtimeState) openBrowser(url string) {
	if rt.noBrowser || rt.nonInteractive || url == "" {
		return
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
