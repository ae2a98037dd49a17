package resolvconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeResolvConf(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFileDiscovererParse(t *testing.T) {
	path := writeResolvConf(t, `
# a comment
nameserver 192.0.2.1
nameserver 192.0.2.2
domain example.com
search example.com example.org
sortlist 10.0.0.0/8
options ndots:2 rotate
`)
	d := NewFileDiscoverer(path)

	servers, err := d.DiscoverServers()
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1", "192.0.2.2"}, servers)

	domains, err := d.DiscoverSearchDomains()
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "example.org"}, domains)

	opts, err := d.DiscoverOptions()
	require.NoError(t, err)
	assert.Equal(t, 2, opts.Ndots)
	assert.True(t, opts.Rotate)
	require.Len(t, opts.Sortlist, 1)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeResolvConf(t, "nameserver 192.0.2.9\noptions ndots:5\n")
	d := NewFileDiscoverer(path)

	// Caller-supplied Tries wins over everything else.
	caller := Options{Tries: 7}
	out, err := Load(caller, d)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Tries)
	// Ndots comes from the file since neither caller nor env set it.
	assert.Equal(t, 5, out.Ndots)
	assert.Equal(t, []string{"192.0.2.9"}, out.Servers)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeResolvConf(t, "nameserver 192.0.2.9\noptions ndots:5\n")
	d := NewFileDiscoverer(path)

	t.Setenv("RES_OPTIONS", "ndots:9")
	out, err := Load(Options{}, d)
	require.NoError(t, err)
	assert.Equal(t, 9, out.Ndots)
}

func TestLoadLocaldomainEnv(t *testing.T) {
	t.Setenv("LOCALDOMAIN", "example.net example.org")
	out, err := Load(Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"example.net", "example.org"}, out.SearchDomains)
}

func TestLoadDefaultsWithNoDiscoverer(t *testing.T) {
	out, err := Load(Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1"}, out.Servers)
	assert.Equal(t, 2000, out.Timeout)
	assert.Equal(t, 3, out.Tries)
	assert.Equal(t, 1, out.Ndots)
	assert.Equal(t, 1232, out.EDNSPacketSize)
}
