package logx

import (
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Combined filter + de-dup writer.
// - allowPattern (optional): if set, only lines matching it pass
// - denyPattern  (optional): lines matching it are dropped
// - window: drop identical lines seen within this window (de-dup)
type Writer struct {
	dst         io.Writer
	allow, deny *regexp.Regexp
	window      time.Duration
	mu          sync.Mutex
	lastSeen    map[string]time.Time
}

func New(dst io.Writer, window time.Duration, allowPattern, denyPattern string) *Writer {
	var allowRE, denyRE *regexp.Regexp
	if strings.TrimSpace(allowPattern) != "" {
		if re, err := regexp.Compile(allowPattern); err == nil {
			allowRE = re
		} // else: fail-soft
	}
	if strings.TrimSpace(denyPattern) != "" {
		if re, err := regexp.Compile(denyPattern); err == nil {
			denyRE = re
		}
	}
	return &Writer{dst: dst, allow: allowRE, deny: denyRE, window: window, lastSeen: make(map[string]time.Time)}
}

func (w *Writer) Write(p []byte) (int, error) {
	line := string(p)

	if w.deny != nil && w.deny.MatchString(line) {
		return len(p), nil
	}
	if w.allow != nil && !w.allow.MatchString(line) {
		return len(p), nil
	}

	key := strings.TrimRight(line, "\r\n")

	now := time.Now()
	w.mu.Lock()
	last, ok := w.lastSeen[key]
	if ok && now.Sub(last) < w.window {
		w.mu.Unlock()
		return len(p), nil // drop duplicate within window
	}
	w.lastSeen[key] = now
	// keep the de-dup map from growing without bound
	if len(w.lastSeen) > 4096 {
		for k, t := range w.lastSeen {
			if now.Sub(t) > w.window {
				delete(w.lastSeen, k)
			}
		}
	}
	w.mu.Unlock()

	return w.dst.Write(p)
}
