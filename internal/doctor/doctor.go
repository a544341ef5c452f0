// Package doctor verifies the host prerequisites for talking to an ACR122U:
// a running pcscd daemon, a discoverable middleware library, no conflicting
// kernel NFC drivers, and at least one attached reader.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"nfcard/internal/reader"
)

// Status of a single check.
type Status int

const (
	StatusOK Status = iota
	StatusWarn
	StatusFail
)

// Check is the outcome of one prerequisite probe.
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Default probe locations on a conventional Linux host.
const (
	DefaultSocketPath  = "/run/pcscd/pcscd.comm"
	DefaultModulesPath = "/proc/modules"
)

// conflictingModules are kernel drivers that claim the reader before
// user-space PC/SC can.
var conflictingModules = []string{"pn533_usb", "pn533", "nfc"}

// middlewareLibrary is the shared object the PC/SC client side loads.
const middlewareLibrary = "libpcsclite.so.1"

// Doctor runs the prerequisite checks. The probe targets are fields so tests
// can point them at fixtures.
type Doctor struct {
	SocketPath  string
	ModulesPath string
	LibraryDirs []string
	ListReaders func() ([]string, error)

	log *zap.Logger
}

// New builds a doctor with production probe targets.
func New(log *zap.Logger) *Doctor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Doctor{
		SocketPath:  DefaultSocketPath,
		ModulesPath: DefaultModulesPath,
		LibraryDirs: defaultLibraryDirs(),
		ListReaders: reader.ListReaders,
		log:         log,
	}
}

func defaultLibraryDirs() []string {
	dirs := filepath.SplitList(os.Getenv("LD_LIBRARY_PATH"))
	dirs = append(dirs,
		"/usr/lib/x86_64-linux-gnu",
		"/usr/lib",
		"/usr/local/lib",
		"/lib",
	)
	var out []string
	for _, d := range dirs {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Run executes all checks in display order.
func (d *Doctor) Run() []Check {
	checks := []Check{
		d.daemonCheck(),
		d.moduleCheck(),
		d.libraryCheck(),
		d.readerCheck(),
	}
	for _, c := range checks {
		d.log.Debug("check complete",
			zap.String("name", c.Name),
			zap.Int("status", int(c.Status)),
			zap.String("detail", c.Detail))
	}
	return checks
}

// Failed reports whether any check failed outright.
func Failed(checks []Check) bool {
	for _, c := range checks {
		if c.Status == StatusFail {
			return true
		}
	}
	return false
}

func (d *Doctor) daemonCheck() Check {
	c := Check{Name: "pcscd daemon"}
	if _, err := os.Stat(d.SocketPath); err != nil {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("control socket %s not found; start pcscd", d.SocketPath)
		return c
	}
	c.Detail = fmt.Sprintf("control socket present at %s", d.SocketPath)
	return c
}

func (d *Doctor) moduleCheck() Check {
	c := Check{Name: "kernel NFC drivers"}
	loaded, err := loadedConflicts(d.ModulesPath)
	if err != nil {
		c.Status = StatusWarn
		c.Detail = fmt.Sprintf("could not inspect %s: %v", d.ModulesPath, err)
		return c
	}
	if len(loaded) > 0 {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("conflicting modules loaded (%s); run: modprobe -r %s",
			strings.Join(loaded, ", "), strings.Join(loaded, " "))
		return c
	}
	c.Detail = "no conflicting modules loaded"
	return c
}

func loadedConflicts(modulesPath string) ([]string, error) {
	f, err := os.Open(modulesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conflicts := make(map[string]bool, len(conflictingModules))
	for _, m := range conflictingModules {
		conflicts[m] = true
	}

	var loaded []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && conflicts[fields[0]] {
			loaded = append(loaded, fields[0])
		}
	}
	return loaded, scanner.Err()
}

func (d *Doctor) libraryCheck() Check {
	c := Check{Name: "middleware library"}
	for _, dir := range d.LibraryDirs {
		path := filepath.Join(dir, middlewareLibrary)
		if _, err := os.Stat(path); err == nil {
			c.Detail = fmt.Sprintf("%s found in %s", middlewareLibrary, dir)
			return c
		}
	}
	c.Status = StatusFail
	c.Detail = fmt.Sprintf("%s not found in the library search path; install libpcsclite or activate the environment (nfcard env)", middlewareLibrary)
	return c
}

func (d *Doctor) readerCheck() Check {
	c := Check{Name: "attached readers"}
	readers, err := d.ListReaders()
	if err != nil {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("reader enumeration failed: %v", err)
		return c
	}
	if len(readers) == 0 {
		c.Status = StatusWarn
		c.Detail = "no readers attached; plug in the ACR122U and run pcsc_scan"
		return c
	}
	c.Detail = strings.Join(readers, "; ")
	return c
}

// WaitForDaemon blocks until the pcscd control socket exists or the context
// is done. The socket directory is watched when possible; creation of the
// directory itself falls back to polling.
func (d *Doctor) WaitForDaemon(ctx context.Context) error {
	if _, err := os.Stat(d.SocketPath); err == nil {
		return nil
	}

	dir := filepath.Dir(d.SocketPath)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("doctor: creating watcher: %w", err)
	}
	defer watcher.Close()

	watching := watcher.Add(dir) == nil
	if !watching {
		d.log.Debug("socket directory absent, polling instead", zap.String("dir", dir))
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		// Re-stat on every wakeup; events can race the initial stat.
		if _, err := os.Stat(d.SocketPath); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("doctor: pcscd did not come up: %w", ctx.Err())
		case event := <-watcher.Events:
			d.log.Debug("socket directory event", zap.String("op", event.Op.String()), zap.String("name", event.Name))
		case err := <-watcher.Errors:
			d.log.Debug("watcher error", zap.Error(err))
		case <-ticker.C:
			if !watching {
				watching = watcher.Add(dir) == nil
			}
		}
	}
}
