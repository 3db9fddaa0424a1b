package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	glog "github.com/goliatone/go-logger/glog"
)

// printer writes user-facing output. Colors are dropped when disabled or
// when NO_COLOR is set.
type printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

func newPrinter(out io.Writer, errOut io.Writer, colors bool) *printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		colors = false
	}
	return &printer{out: out, err: errOut, useColors: colors}
}

func (p *printer) Info(format string, args ...any) {
	if p.useColors {
		_, _ = color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
		return
	}
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) Success(format string, args ...any) {
	if p.useColors {
		_, _ = color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	_, _ = fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
}

func (p *printer) Warning(format string, args ...any) {
	if p.useColors {
		_, _ = color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
		return
	}
	_, _ = fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
}

func (p *printer) Error(format string, args ...any) {
	if p.useColors {
		_, _ = color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
		return
	}
	_, _ = fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
}

// Field prints an aligned key/value line.
func (p *printer) Field(key string, value string) {
	label := fmt.Sprintf("%-14s", key+":")
	if p.useColors {
		label = color.New(color.Bold).Sprint(label)
	}
	_, _ = fmt.Fprintf(p.out, "  %s %s\n", label, value)
}

func (p *printer) JSON(value any) error {
	encoder := json.NewEncoder(p.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// cliLogger forwards library logs to stderr when verbose is on.
type cliLogger struct {
	printer *printer
	verbose bool
}

func (l cliLogger) Trace(msg string, args ...any) { l.write("TRACE", msg, args) }
func (l cliLogger) Debug(msg string, args ...any) { l.write("DEBUG", msg, args) }
func (l cliLogger) Info(msg string, args ...any)  { l.write("INFO", msg, args) }
func (l cliLogger) Warn(msg string, args ...any)  { l.write("WARN", msg, args) }
func (l cliLogger) Error(msg string, args ...any) { l.write("ERROR", msg, args) }
func (l cliLogger) Fatal(msg string, args ...any) { l.write("FATAL", msg, args) }

func (l cliLogger) WithContext(context.Context) glog.Logger { return l }

func (l cliLogger) write(level string, msg string, args []any) {
	if !l.verbose || l.printer == nil {
		return
	}
	pairs := make([]string, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%v=%v", args[i], args[i+1]))
	}
	sort.Strings(pairs)
	line := strings.TrimSpace(level + " " + msg + " " + strings.Join(pairs, " "))
	_, _ = fmt.Fprintln(l.printer.err, line)
}

var _ glog.Logger = cliLogger{}
