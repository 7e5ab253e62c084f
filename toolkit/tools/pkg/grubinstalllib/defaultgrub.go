// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package grubinstalllib

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/file"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/logger"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/privexec"
	"go.opentelemetry.io/otel"
	"gopkg.in/ini.v1"
)

const (
	// GrubDefFile is the filepath of the config file used by grub-mkconfig.
	GrubDefFile = "/etc/default/grub"

	// GrubCmdlineLinuxVar is the /etc/default/grub variable holding the kernel command-line args.
	GrubCmdlineLinuxVar = "GRUB_CMDLINE_LINUX"

	// SerialConsoleArgs are appended to GRUB_CMDLINE_LINUX.
	SerialConsoleArgs = "console=tty0 console=ttyS0,38400n8"

	// Mode used while editing /etc/default/grub.
	writableFileMode = "0666"
)

var grubCmdlineLinuxPrefix = GrubCmdlineLinuxVar + "="

// AppendSerialConsoleArgs adds the serial console args to the first GRUB_CMDLINE_LINUX line.
// The existing value is the text between the first and last double-quote of the line, or empty if there
// aren't two quotes. Lines keep their line terminators and all other lines are returned unchanged.
func AppendSerialConsoleArgs(lines []string) []string {
	newLines := make([]string, len(lines))
	copy(newLines, lines)

	for i, line := range newLines {
		if !strings.HasPrefix(line, grubCmdlineLinuxPrefix) {
			continue
		}

		newLines[i] = appendSerialConsoleArgsToLine(line)
		break
	}

	return newLines
}

func appendSerialConsoleArgsToLine(line string) string {
	content, lineEnding := line, ""
	if strings.HasSuffix(content, "\n") {
		content, lineEnding = strings.TrimSuffix(content, "\n"), "\n"
	}

	oldValue := ""
	firstQuote := strings.Index(content, `"`)
	lastQuote := strings.LastIndex(content, `"`)
	if firstQuote >= 0 && lastQuote > firstQuote {
		oldValue = content[firstQuote+1 : lastQuote]
	}

	return fmt.Sprintf(`%s"%s %s"%s`, grubCmdlineLinuxPrefix, oldValue, SerialConsoleArgs, lineEnding)
}

// PatchDefaultGrub adds the serial console args to the system's /etc/default/grub file.
//
// The file is made writable for the edit and its permissions are restored afterwards. A failed edit is logged
// and ignored, since grub still installs using the unmodified file. Failing to restore the permissions returns
// an ErrTypeResourceConsistency error.
func PatchDefaultGrub(ctx context.Context, executor privexec.Executor, systemRoot string) (err error) {
	_, span := otel.GetTracerProvider().Tracer(OtelTracerName).Start(ctx, "patch_default_grub")
	defer span.End()

	grubDefPath := filepath.Join(systemRoot, GrubDefFile)

	isFile, err := file.IsFile(grubDefPath)
	if err != nil {
		return NewGrubInstallErrorWithCause(ErrTypeBootConfigPatch,
			fmt.Sprintf("failed to check (%s)", grubDefPath), err)
	}

	if !isFile {
		return NewGrubInstallError(ErrTypeBootConfigPatch, fmt.Sprintf("(%s) is not a file", grubDefPath))
	}

	oldMode, err := file.GetPermissionsOctal(grubDefPath)
	if err != nil {
		return NewGrubInstallErrorWithCause(ErrTypeBootConfigPatch,
			fmt.Sprintf("failed to read permissions of (%s)", grubDefPath), err)
	}

	logger.Log.Debugf("Changing permissions of (%s) from (%s) to (%s)", grubDefPath, oldMode, writableFileMode)

	err = executor.ChangeFileMode(grubDefPath, writableFileMode)
	if err != nil {
		return NewGrubInstallErrorWithCause(ErrTypeBootConfigPatch,
			fmt.Sprintf("failed to change permissions of (%s)", grubDefPath), err)
	}

	defer func() {
		logger.Log.Debugf("Restoring permissions of (%s) to (%s)", grubDefPath, oldMode)

		restoreErr := executor.ChangeFileMode(grubDefPath, oldMode)
		if restoreErr != nil {
			logger.Log.Errorf("Failed to restore permissions of (%s) to (%s):\n%v", grubDefPath, oldMode, restoreErr)
			err = NewGrubInstallErrorWithCause(ErrTypeResourceConsistency,
				fmt.Sprintf("failed to restore permissions of (%s) to (%s)", grubDefPath, oldMode), restoreErr)
		}
	}()

	ReportActionf("Adding serial console to (%s)", grubDefPath)

	editErr := addSerialConsoleToFile(grubDefPath)
	if editErr != nil {
		logger.Log.Warnf("Failed to edit (%s), grub will use the unmodified file:\n%v", grubDefPath, editErr)
	}

	return nil
}

func addSerialConsoleToFile(grubDefPath string) error {
	lines, err := file.ReadLines(grubDefPath)
	if err != nil {
		return err
	}

	err = file.RewriteLines(grubDefPath, AppendSerialConsoleArgs(lines))
	if err != nil {
		return err
	}

	cmdline, found, err := ReadGrubCmdlineLinux(grubDefPath)
	if err != nil {
		logger.Log.Debugf("Failed to read back (%s) from (%s): %v", GrubCmdlineLinuxVar, grubDefPath, err)
	} else if found {
		logger.Log.Debugf("%s is now (%s)", GrubCmdlineLinuxVar, cmdline)
	}

	return nil
}

// ReadGrubCmdlineLinux returns the unquoted value of GRUB_CMDLINE_LINUX in a /etc/default/grub file.
func ReadGrubCmdlineLinux(grubDefPath string) (string, bool, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		SkipUnrecognizableLines: true,
		IgnoreInlineComment:     true,
	}, grubDefPath)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse (%s):\n%w", grubDefPath, err)
	}

	section := cfg.Section(ini.DefaultSection)
	if !section.HasKey(GrubCmdlineLinuxVar) {
		return "", false, nil
	}

	return section.Key(GrubCmdlineLinuxVar).String(), true, nil
}
