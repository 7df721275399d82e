//go:build !unix && !windows

package kvstore

import "os"

// Without OS locks, File.Update is only atomic within one process.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
