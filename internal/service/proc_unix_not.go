//go:build !unix

package service

import "os/exec"

// setProcessGroup keeps the exec.CommandContext default, which kills the
// direct child only.
func setProcessGroup(_ *exec.Cmd) {}
