package resolvconf

import (
	"strings"

	"github.com/spf13/viper"
)

// FileOptions loads an optional YAML config file (if path is non-empty)
// plus ARES_-prefixed environment variables into an Options value, the way
// internal/config does it for the rest of this module's settings. This
// sits above Load's resolv.conf handling: it is the source of explicit
// "caller options" when the embedder wants file/env-driven configuration
// instead of hardcoding a channel.Config literal.
func FileOptions(path string) (Options, error) {
	v := viper.New()

	v.SetDefault("timeout", 0)
	v.SetDefault("tries", 0)
	v.SetDefault("ndots", 0)
	v.SetDefault("rotate", false)
	v.SetDefault("edns_packet_size", 0)
	v.SetDefault("servers", []string{})
	v.SetDefault("search_domains", []string{})

	v.SetEnvPrefix("ARES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, err
		}
	}

	return Options{
		Servers:        v.GetStringSlice("servers"),
		SearchDomains:  v.GetStringSlice("search_domains"),
		Timeout:        v.GetInt("timeout"),
		Tries:          v.GetInt("tries"),
		Ndots:          v.GetInt("ndots"),
		Rotate:         v.GetBool("rotate"),
		EDNSPacketSize: v.GetInt("edns_packet_size"),
	}, nil
}
