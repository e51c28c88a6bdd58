package gitops

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Revision returns the short HEAD commit of the checkout containing dir,
// suffixed with "-dirty" when the tree under dir has uncommitted changes.
// It returns "" without error when dir is not inside a git checkout.
func Revision(dir string) (string, error) {
	inside := exec.Command("git", "-C", dir, "rev-parse", "--is-inside-work-tree")
	if out, err := inside.Output(); err != nil || strings.TrimSpace(string(out)) != "true" {
		return "", nil
	}

	head := exec.Command("git", "-C", dir, "rev-parse", "--short", "HEAD")
	out, err := head.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	rev := strings.TrimSpace(string(out))

	dirty, err := Dirty(dir)
	if err != nil {
		return "", err
	}
	if dirty {
		rev += "-dirty"
	}
	return rev, nil
}

// Dirty reports uncommitted changes, including untracked files, under dir.
func Dirty(dir string) (bool, error) {
	status := exec.Command("git", "-C", dir, "status", "--porcelain", "--", ".")
	out, err := status.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("git status: %s: %w", bytes.TrimSpace(out), err)
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}
