//go:build linux

package platform

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = notifyDest + ".Notify"
)

// Notify posts to the notification daemon on the session bus.
func Notify(title, body string, opts Options) error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("session bus: %w", err)
	}
	defer conn.Close()

	hints := map[string]dbus.Variant{}
	if opts.Category != "" {
		hints["category"] = dbus.MakeVariant(opts.Category)
	}
	call := conn.Object(notifyDest, notifyPath).Call(notifyMethod, 0,
		AppName, uint32(0), opts.IconPath, title, body, []string{}, hints, opts.expireMillis())
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}
