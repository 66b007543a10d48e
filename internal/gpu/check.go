package gpu

import "fmt"

// maxErrorDrain bounds how many stale error flags are cleared before a
// checked call. Without a current context GetError may never report
// NoError.
const maxErrorDrain = 16

// DriverError is a non-zero error state observed right after a checked call.
type DriverError struct {
	Label string
	Code  uint32
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("gpu: %s: %s (0x%04X)", e.Label, ErrorName(e.Code), e.Code)
}

// ErrorName returns the symbolic name of a GetError code.
func ErrorName(code uint32) string {
	switch code {
	case NoError:
		return "GL_NO_ERROR"
	case InvalidEnum:
		return "GL_INVALID_ENUM"
	case InvalidValue:
		return "GL_INVALID_VALUE"
	case InvalidOperation:
		return "GL_INVALID_OPERATION"
	case OutOfMemory:
		return "GL_OUT_OF_MEMORY"
	case InvalidFramebufferOperation:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	}
	return "GL_UNKNOWN_ERROR"
}

// ClearErrors drains pending error flags and returns how many were dropped.
func ClearErrors(dev Device) int {
	n := 0
	for n < maxErrorDrain && dev.GetError() != NoError {
		n++
	}
	return n
}

// Checked clears prior error state, runs op, and returns a *DriverError if
// the driver flagged an error during it.
func Checked(rc *RenderContext, label string, op func()) error {
	_, err := CheckedValue(rc, label, func() struct{} {
		op()
		return struct{}{}
	})
	return err
}

// CheckedValue is Checked for calls that produce a value. The value is
// returned even when an error was flagged.
func CheckedValue[T any](rc *RenderContext, label string, op func() T) (T, error) {
	ClearErrors(rc.dev)
	v := op()
	if code := rc.dev.GetError(); code != NoError {
		return v, &DriverError{Label: label, Code: code}
	}
	return v, nil
}

// Do runs op, wrapped in Checked when per-call checking is on. A flagged
// error is logged and returned; callers in the frame loop ignore it.
func (rc *RenderContext) Do(label string, op func()) error {
	if !rc.checkCalls {
		op()
		return nil
	}
	err := Checked(rc, label, op)
	if err != nil {
		Logger().Error("driver call failed", "call", label, "err", err)
	}
	return err
}
