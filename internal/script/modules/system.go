package modules

import (
	"context"
	"runtime"
	"time"

	"os"
)

// System backs the `system` module. SleepMs honors the script's context so
// a cancelled workflow step interrupts a long sleep rather than blocking
// the runtime past its deadline.
type System struct {
	Ctx context.Context
}

func (s System) SleepMs(ms int64) {
	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
	case <-ctx.Done():
	}
}

func (System) Now() int64   { return time.Now().Unix() }
func (System) NowMs() int64 { return time.Now().UnixMilli() }

func (System) Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

func (System) Platform() string { return runtime.GOOS }
func (System) Arch() string     { return runtime.GOARCH }

func (s System) Object() map[string]any {
	return map[string]any{
		"sleep_ms": s.SleepMs,
		"now":      s.Now,
		"now_ms":   s.NowMs,
		"hostname": s.Hostname,
		"platform": s.Platform,
		"arch":     s.Arch,
	}
}
