// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package grubinstalllib

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/systembuild/bootloader-tools/toolkit/tools/internal/logger"
)

const (
	DefaultStepName = "SystemBuildGrubInstall"

	StatusPassed = "PASSED"
	StatusFailed = "FAILED"

	statusField = "status"
	stepField   = "step"
)

// StatusReporter emits the pass/fail marker consumed by the build pipeline.
type StatusReporter interface {
	Passed(step string)
	Failed(step string)
}

// LogStatusReporter writes the pass/fail marker to the log.
type LogStatusReporter struct{}

func (LogStatusReporter) Passed(step string) {
	logger.Log.WithFields(logrus.Fields{stepField: step, statusField: StatusPassed}).
		Infof("%s: %s", step, StatusPassed)
}

func (LogStatusReporter) Failed(step string) {
	logger.Log.WithFields(logrus.Fields{stepField: step, statusField: StatusFailed}).
		Errorf("%s: %s", step, StatusFailed)
}

// ReportActionf logs the formatted action being performed at debug level.
func ReportActionf(format string, args ...interface{}) {
	ReportAction(fmt.Sprintf(format, args...))
}

// ReportAction logs the action being performed at debug level.
func ReportAction(status string) {
	logger.Log.Debugf("ReportAction: '%s'", status)
}
