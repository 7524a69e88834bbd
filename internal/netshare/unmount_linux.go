//go:build linux

package netshare

import "golang.org/x/sys/unix"

func unmount(target string) error {
	return unix.Unmount(target, 0)
}
