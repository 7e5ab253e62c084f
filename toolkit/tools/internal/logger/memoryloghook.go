// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package logger

// Keeps log entries in memory so unit tests can check what was reported.

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type MemoryLogHook struct {
	lock     sync.Mutex
	captures []*MemoryLogCapture
}

// MemoryLogCapture collects the entries logged between its creation and Close.
type MemoryLogCapture struct {
	hook     *MemoryLogHook
	lock     sync.Mutex
	messages []MemoryLogMessage
}

type MemoryLogMessage struct {
	Message string
	Level   logrus.Level
	Fields  logrus.Fields
}

func NewMemoryLogHook() *MemoryLogHook {
	return &MemoryLogHook{}
}

func (h *MemoryLogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *MemoryLogHook) Fire(entry *logrus.Entry) error {
	h.lock.Lock()
	captures := h.captures
	h.lock.Unlock()

	fields := make(logrus.Fields, len(entry.Data))
	for key, value := range entry.Data {
		fields[key] = value
	}

	message := MemoryLogMessage{
		Message: entry.Message,
		Level:   entry.Level,
		Fields:  fields,
	}

	for _, capture := range captures {
		capture.add(message)
	}

	return nil
}

// StartCapture begins collecting log entries.
func (h *MemoryLogHook) StartCapture() *MemoryLogCapture {
	capture := &MemoryLogCapture{
		hook: h,
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	// Copy on write, so Fire can iterate without holding the lock.
	captures := append([]*MemoryLogCapture(nil), h.captures...)
	h.captures = append(captures, capture)

	return capture
}

func (h *MemoryLogHook) stopCapture(capture *MemoryLogCapture) {
	h.lock.Lock()
	defer h.lock.Unlock()

	captures := []*MemoryLogCapture(nil)
	for _, entry := range h.captures {
		if entry != capture {
			captures = append(captures, entry)
		}
	}

	h.captures = captures
}

func (c *MemoryLogCapture) add(message MemoryLogMessage) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.messages = append(c.messages, message)
}

func (c *MemoryLogCapture) Close() {
	c.hook.stopCapture(c)
}

// ConsumeMessages returns the collected entries and clears them.
func (c *MemoryLogCapture) ConsumeMessages() []MemoryLogMessage {
	c.lock.Lock()
	defer c.lock.Unlock()

	messages := c.messages
	c.messages = nil
	return messages
}

// ContainsMessage reports whether any collected entry at the given level contains substr.
func (c *MemoryLogCapture) ContainsMessage(level logrus.Level, substr string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, message := range c.messages {
		if message.Level == level && strings.Contains(message.Message, substr) {
			return true
		}
	}

	return false
}
