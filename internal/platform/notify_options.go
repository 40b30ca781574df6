// Package platform shows desktop notifications through whatever the host
// provides: the session bus on Linux, Notification Center on macOS and
// toast notifications on Windows.
package platform

import (
	"fmt"
	"strings"
	"time"
)

// AppName identifies possemark to the notification service.
const AppName = "possemark"

const defaultTimeout = 5 * time.Second

// Options tunes a single notification. Hosts ignore what they cannot show.
type Options struct {
	// IconPath is an image shown next to the text, such as a page preview.
	IconPath string
	// Timeout is how long the notification stays up. Zero means five seconds.
	Timeout time.Duration
	// Category is a freedesktop category hint, e.g. "transfer.complete".
	Category string
}

func (o Options) expireMillis() int32 {
	if o.Timeout <= 0 {
		return int32(defaultTimeout / time.Millisecond)
	}
	return int32(o.Timeout / time.Millisecond)
}

// appleScript builds the osascript program for a notification.
func appleScript(title, body string) string {
	return fmt.Sprintf("display notification %q with title %q subtitle %q", body, title, AppName)
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// toastScript builds the PowerShell program raising a Windows toast. The
// image template is used only when an icon is given.
func toastScript(title, body, icon string) string {
	kind := "ToastText02"
	if icon != "" {
		kind = "ToastImageAndText02"
	}
	lines := []string{
		"[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType=Windows Runtime] > $null",
		"$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::" + kind + ")",
		`$texts = $template.GetElementsByTagName("text")`,
		"$texts.Item(0).AppendChild($template.CreateTextNode(" + psQuote(title) + ")) > $null",
		"$texts.Item(1).AppendChild($template.CreateTextNode(" + psQuote(body) + ")) > $null",
	}
	if icon != "" {
		lines = append(lines, `$template.GetElementsByTagName("image").Item(0).SetAttribute("src", `+psQuote(icon)+")")
	}
	lines = append(lines,
		"$toast = [Windows.UI.Notifications.ToastNotification]::new($template)",
		"[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("+psQuote(AppName)+").Show($toast)",
	)
	return strings.Join(lines, "; ")
}
