package env

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New("", "")
	assert.Equal(t, DefaultPlatform, p.Platform)
	assert.Equal(t, "/usr/lib/x86_64-linux-gnu", p.LibDir)
	assert.Equal(t, []string{"LD_LIBRARY_PATH", "NIX_LD_LIBRARY_PATH"}, p.Variables())
}

func TestNew_Darwin(t *testing.T) {
	p := New("aarch64-darwin", "")
	assert.Equal(t, "/usr/local/lib", p.LibDir)
	assert.Equal(t, []string{"LD_LIBRARY_PATH", "DYLD_FALLBACK_LIBRARY_PATH"}, p.Variables())
}

func TestExports_PrefixesBothVariables(t *testing.T) {
	p := New("x86_64-linux", "/opt/pcsclite/lib")
	environ := map[string]string{"LD_LIBRARY_PATH": "/usr/lib:/lib"}

	exports := p.Exports(lookupFrom(environ))
	require.Len(t, exports, 2)
	assert.Equal(t, "LD_LIBRARY_PATH", exports[0].Name)
	assert.Equal(t, "/opt/pcsclite/lib:/usr/lib:/lib", exports[0].Value)
	assert.Equal(t, "NIX_LD_LIBRARY_PATH", exports[1].Name)
	assert.Equal(t, "/opt/pcsclite/lib", exports[1].Value)
}

func TestExports_Idempotent(t *testing.T) {
	p := New("x86_64-linux", "/opt/pcsclite/lib")
	environ := map[string]string{"LD_LIBRARY_PATH": "/usr/lib"}

	// Simulate sourcing the hook several times in one shell.
	for i := 0; i < 3; i++ {
		for _, e := range p.Exports(lookupFrom(environ)) {
			environ[e.Name] = e.Value
		}
	}

	assert.Equal(t, "/opt/pcsclite/lib:/usr/lib", environ["LD_LIBRARY_PATH"])
	assert.Equal(t, "/opt/pcsclite/lib", environ["NIX_LD_LIBRARY_PATH"])
}

func TestPrependPath(t *testing.T) {
	cases := []struct {
		name string
		path string
		want string
	}{
		{"empty path", "", "/x/lib"},
		{"fresh entry", "/a:/b", "/x/lib:/a:/b"},
		{"already first", "/x/lib:/a", "/x/lib:/a"},
		{"buried duplicate is lifted", "/a:/x/lib:/b", "/x/lib:/a:/b"},
		{"empty segments dropped", ":/a::/b:", "/x/lib:/a:/b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PrependPath(tc.path, "/x/lib"))
		})
	}
}

func TestWriteScript(t *testing.T) {
	p := New("x86_64-linux", "/opt/pcsclite/lib")
	var out strings.Builder
	require.NoError(t, p.WriteScript(&out, lookupFrom(nil)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "export LD_LIBRARY_PATH=/opt/pcsclite/lib", lines[0])
	assert.Equal(t, "export NIX_LD_LIBRARY_PATH=/opt/pcsclite/lib", lines[1])
}

func TestWriteScript_QuotesSpecials(t *testing.T) {
	p := New("x86_64-linux", "/opt/weird dir/lib")
	var out strings.Builder
	require.NoError(t, p.WriteScript(&out, lookupFrom(nil)))
	assert.Contains(t, out.String(), "export LD_LIBRARY_PATH='/opt/weird dir/lib'")
}

func TestWriteHints_Once(t *testing.T) {
	p := New("", "")
	var out strings.Builder

	require.NoError(t, p.WriteHints(&out))
	first := out.String()
	assert.Contains(t, first, "pcscd")
	assert.Contains(t, first, "pcsc_scan")
	assert.Contains(t, first, "pn533")

	// A second call within the same activation is a no-op.
	require.NoError(t, p.WriteHints(&out))
	assert.Equal(t, first, out.String())
}

func TestPackages(t *testing.T) {
	pkgs := Packages()
	require.Len(t, pkgs, 4)
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	assert.Contains(t, names, "pcscd")
	assert.Contains(t, names, "libpcsclite")
	assert.Contains(t, names, "libusb")
}
