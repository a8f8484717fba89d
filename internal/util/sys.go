// Copyright The LLTap Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/lltap/lltap/internal/ex"
)

// IsWindows reports whether the pass is running on Windows, where toolexec
// command lines and path separators need different handling.
func IsWindows() bool {
	return runtime.GOOS == "windows"
}

// RunCmd runs args as a subprocess, forwarding stdio, in the current
// directory and environment.
func RunCmd(ctx context.Context, args ...string) error {
	return RunCmdWithEnv(ctx, nil, args...)
}

// RunCmdWithEnv runs args as a subprocess with extra environment variables
// appended to the current environment.
func RunCmdWithEnv(ctx context.Context, env []string, args ...string) error {
	if len(args) == 0 {
		return ex.New("empty command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	if err := cmd.Run(); err != nil {
		return ex.Wrapf(err, "running command %v", args)
	}
	return nil
}

// RunCmdInDir runs args as a subprocess with its working directory set to
// dir.
func RunCmdInDir(ctx context.Context, dir string, args ...string) error {
	if len(args) == 0 {
		return ex.New("empty command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		return ex.Wrapf(err, "running command %v in %s", args, dir)
	}
	return nil
}

// PathExists reports whether path exists on disk.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListFiles lists the regular files directly inside dir.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ex.Wrapf(err, "listing files in %s", dir)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}

// CopyFile copies src to dst, creating dst's parent directory if needed.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return ex.Wrapf(err, "opening %s", src)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ex.Wrapf(err, "creating directory for %s", dst)
	}
	out, err := os.Create(dst)
	if err != nil {
		return ex.Wrapf(err, "creating %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return ex.Wrapf(err, "copying %s to %s", src, dst)
	}
	return nil
}

func IsGoFile(path string) bool {
	return filepath.Ext(path) == ".go"
}

func IsYamlFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// NewFileScanner returns a bufio.Scanner over file, seeked back to the
// start, with a buffer sized for size bytes.
func NewFileScanner(file *os.File, size int) (*bufio.Scanner, error) {
	if _, err := file.Seek(0, 0); err != nil {
		return nil, ex.Wrapf(err, "seeking file")
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, size), size)
	return scanner, nil
}
