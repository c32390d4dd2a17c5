//go:build windows

package file

func init() {
	// directories cannot be opened for fsync on windows
	syncDirs = false
}
