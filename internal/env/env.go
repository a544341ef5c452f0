// Package env reproduces the development-shell environment the ACR122U
// toolchain needs: it prepends the smart-card middleware library directory to
// the loader search paths and tells the operator what must be running on the
// host. Nothing is installed and nothing persists beyond the shell session
// that evals the output.
package env

import (
	"fmt"
	"io"
	"strings"
)

// DefaultPlatform is the target triple the dependency set was curated for.
const DefaultPlatform = "x86_64-linux"

// Package is a native dependency the host is expected to provide.
type Package struct {
	Name    string
	Purpose string
}

// Packages returns the native dependency set, in display order.
func Packages() []Package {
	return []Package{
		{Name: "pcscd", Purpose: "PC/SC smart-card daemon"},
		{Name: "libpcsclite", Purpose: "PC/SC middleware runtime library"},
		{Name: "libusb", Purpose: "user-space USB access"},
		{Name: "pcsc-tools", Purpose: "reader diagnostics (pcsc_scan)"},
	}
}

// Export is a single environment variable assignment.
type Export struct {
	Name  string
	Value string
}

// Provisioner computes the environment mutations for one activation.
type Provisioner struct {
	Platform string
	LibDir   string // smart-card middleware library directory

	hintsEmitted bool
}

// New builds a provisioner for the given target triple. An empty libDir
// selects the conventional location for the platform.
func New(platform, libDir string) *Provisioner {
	if platform == "" {
		platform = DefaultPlatform
	}
	if libDir == "" {
		libDir = defaultLibDir(platform)
	}
	return &Provisioner{Platform: platform, LibDir: libDir}
}

func defaultLibDir(platform string) string {
	if strings.Contains(platform, "darwin") {
		return "/usr/local/lib"
	}
	return "/usr/lib/x86_64-linux-gnu"
}

// Variables returns the two loader search path variables the activation
// touches: the conventional dynamic linker path and the alternative loader
// path for the platform.
func (p *Provisioner) Variables() []string {
	if strings.Contains(p.Platform, "darwin") {
		return []string{"LD_LIBRARY_PATH", "DYLD_FALLBACK_LIBRARY_PATH"}
	}
	return []string{"LD_LIBRARY_PATH", "NIX_LD_LIBRARY_PATH"}
}

// Exports computes the variable assignments for activation. lookup resolves
// the current value of a variable (os.LookupEnv in production). Activation is
// idempotent: a library directory already leading the path is not prepended
// again, so repeated sourcing never accumulates duplicates.
func (p *Provisioner) Exports(lookup func(string) (string, bool)) []Export {
	exports := make([]Export, 0, 2)
	for _, name := range p.Variables() {
		current, _ := lookup(name)
		exports = append(exports, Export{Name: name, Value: PrependPath(current, p.LibDir)})
	}
	return exports
}

// PrependPath puts dir at the front of a colon-separated search path,
// dropping any existing occurrences of dir first.
func PrependPath(path, dir string) string {
	if path == "" {
		return dir
	}
	kept := make([]string, 0, 4)
	for _, entry := range strings.Split(path, ":") {
		if entry == dir || entry == "" {
			continue
		}
		kept = append(kept, entry)
	}
	return strings.Join(append([]string{dir}, kept...), ":")
}

// WriteScript renders eval-able POSIX shell export statements.
func (p *Provisioner) WriteScript(w io.Writer, lookup func(string) (string, bool)) error {
	for _, e := range p.Exports(lookup) {
		if _, err := fmt.Fprintf(w, "export %s=%s\n", e.Name, shellQuote(e.Value)); err != nil {
			return err
		}
	}
	return nil
}

// WriteHints emits the operator instructions for this activation. They are
// written at most once per provisioner so a single activation never repeats
// them.
func (p *Provisioner) WriteHints(w io.Writer) error {
	if p.hintsEmitted {
		return nil
	}
	p.hintsEmitted = true

	var sb strings.Builder
	fmt.Fprintf(&sb, "nfcard environment for %s\n", p.Platform)
	fmt.Fprintf(&sb, "  library path now leads with %s\n", p.LibDir)
	sb.WriteString("  the pcscd daemon must be running:  systemctl start pcscd\n")
	sb.WriteString("  verify the reader is visible with: pcsc_scan\n")
	sb.WriteString("  if the reader cannot be claimed, unload the kernel NFC drivers:\n")
	sb.WriteString("    modprobe -r pn533_usb pn533 nfc\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`&;()<>|*?[]#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
