// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package file

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// ReadLines returns the lines of the file. Each line keeps its line terminator,
// so joining the lines produces the original content.
func ReadLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	lines := []string(nil)
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}

		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to read (%s):\n%w", path, err)
		}
	}

	return lines, nil
}

// RewriteLines replaces the entire content of an existing file with lines.
// The file keeps its inode and permissions.
func RewriteLines(path string, lines []string) (err error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close (%s):\n%w", path, closeErr)
		}
	}()

	_, err = file.WriteString(strings.Join(lines, ""))
	if err != nil {
		return fmt.Errorf("failed to write (%s):\n%w", path, err)
	}

	return nil
}

// GetPermissionsOctal returns the permission bits of the file as a three digit octal string (e.g. "644").
func GetPermissionsOctal(path string) (string, error) {
	var stat unix.Stat_t
	err := unix.Stat(path, &stat)
	if err != nil {
		return "", fmt.Errorf("failed to stat (%s):\n%w", path, err)
	}

	return fmt.Sprintf("%03o", stat.Mode&0o777), nil
}

// CommandExists checks if a program is available in PATH.
func CommandExists(name string) (bool, error) {
	_, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsFile reports whether path exists and is a regular file.
func IsFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
