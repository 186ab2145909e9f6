//go:build linux

package agent

// ActiveWindowTitle needs xdotool on an X11 session.
func ActiveWindowTitle() string {
	return commandOutput("xdotool", "getwindowfocus", "getwindowname")
}
