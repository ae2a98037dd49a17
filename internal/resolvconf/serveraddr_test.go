package resolvconf

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerAddr(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantAddr string
		wantPort uint16
		wantErr  bool
	}{
		{"bare ipv4", "192.0.2.1", "192.0.2.1", 0, false},
		{"ipv4 with port", "192.0.2.1:5353", "192.0.2.1", 5353, false},
		{"bracketed ipv6", "[2001:db8::1]", "2001:db8::1", 0, false},
		{"bracketed ipv6 with port", "[2001:db8::1]:53", "2001:db8::1", 53, false},
		{"fec0 rejected", "fec0::1", "", 0, true},
		{"unterminated bracket", "[2001:db8::1", "", 0, true},
		{"empty", "", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServerAddr(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, netip.MustParseAddr(tt.wantAddr), got.Addr)
			assert.Equal(t, tt.wantPort, got.Port)
		})
	}
}

func TestParseServerAddrRoundTrip(t *testing.T) {
	// spec §8: re-emitting a parsed server address string and re-parsing it
	// yields the same (family, address, port).
	for _, in := range []string{"192.0.2.1", "192.0.2.1:53", "[2001:db8::1]", "[2001:db8::1]:5353"} {
		t.Run(in, func(t *testing.T) {
			first, err := ParseServerAddr(in)
			require.NoError(t, err)
			second, err := ParseServerAddr(first.String())
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestParseServerList(t *testing.T) {
	got, err := ParseServerList("192.0.2.1, 192.0.2.2\t[2001:db8::1]:53")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, netip.MustParseAddr("192.0.2.1"), got[0].Addr)
	assert.Equal(t, netip.MustParseAddr("192.0.2.2"), got[1].Addr)
	assert.Equal(t, uint16(53), got[2].Port)
}
