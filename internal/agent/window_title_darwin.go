//go:build darwin

package agent

const frontWindowScript = `tell application "System Events" to get name of window 1 of (first application process whose frontmost is true)`

func ActiveWindowTitle() string {
	return commandOutput("osascript", "-e", frontWindowScript)
}
