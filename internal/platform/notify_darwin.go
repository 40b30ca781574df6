//go:build darwin

package platform

import "os/exec"

// Notify hands the notification to osascript. Icons are not supported.
func Notify(title, body string, _ Options) error {
	return exec.Command("osascript", "-e", appleScript(title, body)).Run()
}
