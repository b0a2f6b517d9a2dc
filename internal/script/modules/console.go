package modules

import (
	"fmt"
	"io"
)

// Console backs the `console` module. All levels write to stderr per spec,
// matching the teacher's administrative CLI output convention of reserving
// stdout for the response body.
type Console struct {
	Out io.Writer
}

func (c Console) write(level, format string, args []any) {
	msg := fmt.Sprint(args...)
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	fmt.Fprintf(c.Out, "[%s] %s\n", level, msg)
}

func (c Console) Log(args ...any)     { c.write("log", "", args) }
func (c Console) Info(args ...any)    { c.write("info", "", args) }
func (c Console) Warn(args ...any)    { c.write("warn", "", args) }
func (c Console) Error(args ...any)   { c.write("error", "", args) }
func (c Console) Debug(args ...any)   { c.write("debug", "", args) }
func (c Console) Trace(args ...any)   { c.write("trace", "", args) }
func (c Console) Success(args ...any) { c.write("success", "", args) }

func (c Console) Object() map[string]any {
	return map[string]any{
		"log":     c.Log,
		"info":    c.Info,
		"warn":    c.Warn,
		"error":   c.Error,
		"debug":   c.Debug,
		"trace":   c.Trace,
		"success": c.Success,
	}
}
