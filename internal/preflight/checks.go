package preflight

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that path is a directory the process can
// list, read, and create files in. Passing results report the free space on
// the backing filesystem, since scratch holds extracted audio and rendered
// video until they are promoted.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(reason string) Result {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, reason)}
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fail("does not exist")
	case err != nil:
		return fail("stat: " + err.Error())
	case !info.IsDir():
		return fail("is not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail("insufficient permissions: " + err.Error())
	}

	detail := path + " (read/write ok)"
	if free, ok := freeBytes(path); ok {
		detail = fmt.Sprintf("%s (read/write ok, %s free)", path, humanize.IBytes(free))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func freeBytes(path string) (uint64, bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, false
	}
	return st.Bavail * uint64(st.Bsize), true
}
