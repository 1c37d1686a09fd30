//go:build windows

package observability

func isTerminalSyncErr(err error) bool { return true }
