//go:build windows

package platform

import (
	"os/exec"
	"strings"
)

func Notify(title, body string, opts Options) error {
	script := toastScript(title, body, strings.TrimSpace(opts.IconPath))
	return exec.Command("powershell.exe", "-NoProfile", "-Command", script).Run()
}
