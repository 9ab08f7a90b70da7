// Package debug is the gated diagnostic log. Nothing is written unless debug
// mode is on and an output has been configured.
//
// Debug mode is enabled by the build flag, or at runtime with DEBUG=1,
// DEBUG=true, or DEBUG set to a comma-separated list of components
// (for example DEBUG=resolve,parse).
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Build flag for debug mode
// go build -ldflags "-X github.com/tbenton/vscode-cfml/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// Component names used with Log
const (
	ComponentLexer   = "LEXER"
	ComponentParse   = "PARSE"
	ComponentResolve = "RESOLVE"
	ComponentIndex   = "INDEX"
	ComponentWatch   = "WATCH"
	ComponentMCP     = "MCP"
	ComponentConfig  = "CONFIG"
)

// MCPMode is set by the mcp command; it suppresses all debug output to stdio
var MCPMode = false

var (
	debugMutex  sync.Mutex
	debugOutput io.Writer
	debugFile   *os.File
)

// SetMCPMode enables MCP mode
func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetDebugOutput sets the writer for debug output. Pass nil to disable it.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// InitDebugLogFile sends debug output to a timestamped file under the temp
// directory and returns its path. Call CloseDebugLog when done.
func InitDebugLogFile() (string, error) {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "cfmlctx-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", time.Now().Format("2006-01-02T150405")))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugFile = file
	debugOutput = file
	return logPath, nil
}

// CloseDebugLog closes the debug log file if one is open
func CloseDebugLog() error {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	if debugFile == nil {
		return nil
	}
	err := debugFile.Close()
	debugFile = nil
	debugOutput = nil
	return err
}

// IsDebugEnabled reports whether debug mode is on for any component
func IsDebugEnabled() bool {
	if MCPMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v != "" && v != "0" && v != "false"
}

// IsComponentEnabled reports whether debug output for component is on
func IsComponentEnabled(component string) bool {
	if !IsDebugEnabled() {
		return false
	}
	v := os.Getenv("DEBUG")
	if EnableDebug == "true" || v == "1" || v == "true" || v == "" {
		return true
	}
	for _, name := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(name), component) {
			return true
		}
	}
	return false
}

func writer() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Printf prints debug information when debug mode is on and output is configured
func Printf(format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	if w := writer(); w != nil {
		fmt.Fprintf(w, "[DEBUG] "+format, args...)
	}
}

// Log writes a line tagged with a component name
func Log(component, format string, args ...interface{}) {
	if !IsComponentEnabled(component) {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprintf(w, "[DEBUG:%s] %s", component, msg)
}

func LogLexer(format string, args ...interface{}) {
	Log(ComponentLexer, format, args...)
}

func LogParse(format string, args ...interface{}) {
	Log(ComponentParse, format, args...)
}

func LogResolve(format string, args ...interface{}) {
	Log(ComponentResolve, format, args...)
}

func LogIndex(format string, args ...interface{}) {
	Log(ComponentIndex, format, args...)
}

func LogWatch(format string, args ...interface{}) {
	Log(ComponentWatch, format, args...)
}

func LogMCP(format string, args ...interface{}) {
	Log(ComponentMCP, format, args...)
}

func LogConfig(format string, args ...interface{}) {
	Log(ComponentConfig, format, args...)
}

// Fatal writes a fatal message to the debug log and returns it as an error.
// In MCP mode the message is only returned.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if !MCPMode {
		if w := writer(); w != nil {
			fmt.Fprintf(w, "[FATAL] %s\n", msg)
		}
	}
	return fmt.Errorf("fatal error: %s", msg)
}
