package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\x1b[0m"
	ansiBold    = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

// prettyHandler writes one key=value line per record for local development.
// Attributes bound with WithAttrs are rendered once, under the groups open at that point.
type prettyHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	source bool
	color  bool

	prefix string // group path for attributes added from now on, "" or "a.b."
	bound  string // pre-rendered WithAttrs output
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{out: w, mu: &sync.Mutex{}, level: slog.LevelInfo, color: color}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.source = opts.AddSource
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString("ts=" + h.paint(ts.Format("15:04:05.000"), ansiDim))
	b.WriteString(" lvl=" + h.levelTag(r.Level))
	b.WriteString(" msg=" + h.paint(r.Message, ansiBold))

	if h.source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if f.File != "" {
			b.WriteString(" src=" + h.paint(filepath.Base(f.File)+":"+strconv.Itoa(f.Line), ansiDim))
		}
	}

	b.WriteString(h.bound)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	for _, a := range attrs {
		h.writeAttr(&b, h.prefix, a)
	}
	cp := *h
	cp.bound += b.String()
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name = strings.TrimSpace(name); name == "" {
		return h
	}
	cp := *h
	cp.prefix += name + "."
	return &cp
}

func (h *prettyHandler) writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		// An unnamed group inlines its members.
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, prefix, ga)
		}
		return
	}

	key := strings.TrimSpace(a.Key)
	if key == "" {
		return
	}
	b.WriteString(" " + prefix + displayKey(key) + "=" + h.formatValue(key, a.Value))
}

// displayKey shortens the request-log keys.
func displayKey(k string) string {
	switch k {
	case "status_class":
		return "class"
	case "duration_ms":
		return "duration"
	}
	return k
}

func (h *prettyHandler) formatValue(key string, v slog.Value) string {
	switch key {
	case "method":
		m := strings.ToUpper(strings.TrimSpace(v.String()))
		return h.paint(m, methodColor(m))
	case "path", "route":
		return h.paint(quoteIfNeeded(v.String()), ansiCyan)
	case "status":
		if n, ok := asInt(v); ok {
			return h.paint(strconv.FormatInt(n, 10), statusColor(int(n)))
		}
	case "status_class":
		class := v.String()
		if len(class) == 3 && strings.HasSuffix(class, "xx") {
			return h.paint(class, statusColor(int(class[0]-'0')*100))
		}
		return class
	case "duration_ms":
		if n, ok := asInt(v); ok {
			return h.paint(strconv.FormatInt(n, 10)+"ms", durationColor(n))
		}
	case "result":
		r := strings.ToLower(v.String())
		return h.paint(r, resultColor(r))
	case "token_fp", "user_id", "err":
		return h.paint(quoteIfNeeded(plainValue(v)), ansiDim)
	}
	return quoteIfNeeded(plainValue(v))
}

func (h *prettyHandler) levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return h.paint("[ERROR]", ansiRed)
	case l >= slog.LevelWarn:
		return h.paint("[WARN]", ansiYellow)
	case l < slog.LevelInfo:
		return h.paint("[DEBUG]", ansiMagenta)
	default:
		return h.paint("[INFO]", ansiBlue)
	}
}

func (h *prettyHandler) paint(s, code string) string {
	if !h.color || code == "" {
		return s
	}
	return code + s + ansiReset
}

func methodColor(m string) string {
	switch m {
	case http.MethodGet:
		return ansiGreen
	case http.MethodPost:
		return ansiYellow
	case http.MethodDelete:
		return ansiRed
	}
	return ansiMagenta
}

func statusColor(code int) string {
	switch {
	case code >= 500:
		return ansiRed
	case code >= 400:
		return ansiYellow
	case code >= 300:
		return ansiCyan
	case code >= 200:
		return ansiGreen
	}
	return ""
}

func durationColor(ms int64) string {
	switch {
	case ms >= 1000:
		return ansiRed
	case ms >= 250:
		return ansiYellow
	}
	return ansiDim
}

func resultColor(r string) string {
	switch r {
	case "success":
		return ansiGreen
	case "redirect":
		return ansiCyan
	case "client_error":
		return ansiYellow
	case "server_error":
		return ansiRed
	}
	return ""
}

func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.String()
}

func asInt(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	case slog.KindFloat64:
		return int64(v.Float64()), true
	}
	return 0, false
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
