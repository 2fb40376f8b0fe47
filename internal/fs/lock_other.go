//go:build !unix

package fs

func lockFile(uintptr) error   { return nil }
func unlockFile(uintptr) error { return nil }
