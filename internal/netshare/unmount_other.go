//go:build !linux

package netshare

import "os/exec"

func unmount(target string) error {
	return exec.Command("umount", target).Run()
}
