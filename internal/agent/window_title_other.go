//go:build !linux && !darwin && !windows

package agent

func ActiveWindowTitle() string {
	return unknownWindow
}
