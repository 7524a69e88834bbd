package netshare

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/prometheus/procfs"
)

// ProcMountTable reads /proc/self/mountinfo.
type ProcMountTable struct{}

func (ProcMountTable) Mounts() ([]Mount, error) {
	infos, err := procfs.GetMounts()
	if err != nil {
		return nil, err
	}
	out := make([]Mount, 0, len(infos))
	for _, mi := range infos {
		out = append(out, Mount{Source: mi.Source, MountPoint: mi.MountPoint, FSType: mi.FSType})
	}
	return out, nil
}

// ExecMounter runs mount(8) and unmounts with umount(2).
type ExecMounter struct{}

func (ExecMounter) Mount(ctx context.Context, fstype, source, target, options string) error {
	args := []string{"-t", fstype}
	if options != "" {
		args = append(args, "-o", options)
	}
	args = append(args, source, target)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "mount", args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%v: %s", err, msg)
		}
		return err
	}
	return nil
}

func (ExecMounter) Unmount(_ context.Context, target string) error {
	return unmount(target)
}
