package resolvconf

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSortlist(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string // netip.Prefix.String() form
	}{
		{"class A natural mask", "10.0.0.1", []string{"10.0.0.0/8"}},
		{"class B natural mask", "172.16.0.1", []string{"172.16.0.0/16"}},
		{"class C natural mask", "192.168.1.1", []string{"192.168.1.0/24"}},
		{"explicit cidr", "192.168.0.0/16", []string{"192.168.0.0/16"}},
		{"explicit dotted mask", "192.168.0.0/255.255.0.0", []string{"192.168.0.0/16"}},
		{"multiple items", "10.0.0.0/8 192.168.1.1", []string{"10.0.0.0/8", "192.168.1.0/24"}},
		{"terminated by semicolon", "10.0.0.0/8;192.168.1.1", []string{"10.0.0.0/8"}},
		{"ipv6 cidr", "2001:db8::/32", []string{"2001:db8::/32"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseSortlist(tt.in)
			require.NoError(t, err)
			require.Len(t, items, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, netip.MustParsePrefix(w), items[i].Prefix)
			}
		})
	}
}

func TestParseSortlistBadMask(t *testing.T) {
	_, err := ParseSortlist("192.168.0.0/255.0.255.0")
	assert.Error(t, err)
}
