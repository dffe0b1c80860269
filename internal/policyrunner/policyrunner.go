// Package policyrunner invokes the external policy verifier per spec.md
// §5: a child process given the EK hash and the request workspace path,
// its stdout captured as the opaque approved payload. The
// exec.CommandContext + captured-Output shape is grounded on
// flightctl-flightctl's internal/agent/device/systeminfo/system_info.go.
package policyrunner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// VerifyFailedError reports a non-zero exit from the policy verifier; the
// orchestrator maps it to VERIFY_FAILED.
type VerifyFailedError struct {
	ExitErr error
	Stderr  string
}

func (e *VerifyFailedError) Error() string {
	return fmt.Sprintf("policyrunner: VERIFY_FAILED: %v: %s", e.ExitErr, e.Stderr)
}

func (e *VerifyFailedError) Unwrap() error { return e.ExitErr }

// Runner invokes a single external policy verifier binary.
type Runner struct {
	// BinPath is the absolute path to the policy verifier executable.
	BinPath string
	Log     logrus.FieldLogger
}

// Run invokes the policy verifier as `BinPath <ekHashHex> <workspaceDir>`,
// returning its stdout as the approved payload. The child inherits no
// attestation secrets beyond what is already staged in workspaceDir.
func (r *Runner) Run(ctx context.Context, ekHashHex, workspaceDir string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.BinPath, ekHashHex, workspaceDir)
	cmd.Dir = filepath.Dir(workspaceDir)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stderr.Len() > 0 && r.Log != nil {
		r.Log.WithField("policy_stderr", stderr.String()).Debug("policy verifier wrote to stderr")
	}
	if err != nil {
		return nil, &VerifyFailedError{ExitErr: err, Stderr: stderr.String()}
	}
	return stdout.Bytes(), nil
}
