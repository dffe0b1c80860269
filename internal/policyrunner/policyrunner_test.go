package policyrunner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("policy verifier scripts are POSIX shell only")
	}
	path := filepath.Join(t.TempDir(), "verifier.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700))
	return path
}

func TestRunReturnsStdout(t *testing.T) {
	script := writeScript(t, `echo -n "approved:$1:$2"`)
	r := &Runner{BinPath: script}

	out, err := r.Run(context.Background(), "deadbeef", t.TempDir())
	require.NoError(t, err)
	require.Contains(t, string(out), "approved:deadbeef:")
}

func TestRunReportsVerifyFailed(t *testing.T) {
	script := writeScript(t, `echo "denied" >&2; exit 1`)
	r := &Runner{BinPath: script}

	_, err := r.Run(context.Background(), "deadbeef", t.TempDir())
	require.Error(t, err)
	var verr *VerifyFailedError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Stderr, "denied")
}
