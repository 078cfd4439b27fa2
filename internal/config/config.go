// Package config loads the gateway's configuration bag (spec.md §6). The
// primary mechanism is a flat environment-variable read, matching the
// "external collaborator" contract spec.md §1 assumes; an optional
// CONFIG_FILE overlay via spf13/viper lets an operator override the same
// keys from a file without touching the process environment.
package config

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/relaygate/relaygate/internal/dnsproxy"
)

// Config is the process-wide, read-only configuration bag (spec.md §3
// "Configuration bag").
type Config struct {
	AuthToken             string
	DefaultDstURL         string
	DebugMode             bool
	ProxyStrategy         string
	FallbackProxyStrategy string
	Socks5Address         string
	ThirdPartyProxyURL    string
	CloudProviderURL      string
	DNS                   dnsproxy.Config
	ListenAddr            string
}

const (
	defaultProxyStrategy         = "socket"
	defaultFallbackProxyStrategy = "fetch"
	defaultDoHHostname           = "dns.google"
	defaultDoHPort               = 443
	defaultDoHPath               = "/dns-query"
	defaultDoTHostname           = "dns.google"
	defaultDoTPort               = 853
	defaultListenAddr            = ":8080"
)

// Load builds a Config from the process environment (spec.md §6), with
// CONFIG_FILE — if set — overlaying matching keys from a file via viper.
func Load(environ func(string) string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindDefaults(v)

	if file := environ("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	// Environment variables take precedence over both viper defaults and
	// the optional file overlay, matching spec.md §1's flat env-bag model.
	get := func(key string) string {
		if val := environ(key); val != "" {
			return val
		}
		return v.GetString(key)
	}

	cfg := &Config{
		AuthToken:             get("AUTH_TOKEN"),
		DefaultDstURL:         get("DEFAULT_DST_URL"),
		DebugMode:             parseBool(get("DEBUG_MODE")),
		ProxyStrategy:         orDefault(get("PROXY_STRATEGY"), defaultProxyStrategy),
		FallbackProxyStrategy: orDefault(get("FALLBACK_PROXY_STRATEGY"), defaultFallbackProxyStrategy),
		Socks5Address:         get("SOCKS5_ADDRESS"),
		ThirdPartyProxyURL:    get("THIRD_PARTY_PROXY_URL"),
		CloudProviderURL:      get("CLOUD_PROVIDER_URL"),
		ListenAddr:            orDefault(get("LISTEN_ADDR"), defaultListenAddr),
		DNS: dnsproxy.Config{
			DoHHostname: orDefault(get("DOH_SERVER_HOSTNAME"), defaultDoHHostname),
			DoHPort:     orDefaultInt(get("DOH_SERVER_PORT"), defaultDoHPort),
			DoHPath:     orDefault(get("DOH_SERVER_PATH"), defaultDoHPath),
			DoTHostname: orDefault(get("DOT_SERVER_HOSTNAME"), defaultDoTHostname),
			DoTPort:     orDefaultInt(get("DOT_SERVER_PORT"), defaultDoTPort),
		},
	}
	return cfg, nil
}

func bindDefaults(v *viper.Viper) {
	v.SetDefault("PROXY_STRATEGY", defaultProxyStrategy)
	v.SetDefault("FALLBACK_PROXY_STRATEGY", defaultFallbackProxyStrategy)
	v.SetDefault("DOH_SERVER_HOSTNAME", defaultDoHHostname)
	v.SetDefault("DOH_SERVER_PORT", defaultDoHPort)
	v.SetDefault("DOH_SERVER_PATH", defaultDoHPath)
	v.SetDefault("DOT_SERVER_HOSTNAME", defaultDoTHostname)
	v.SetDefault("DOT_SERVER_PORT", defaultDoTPort)
	v.SetDefault("LISTEN_ADDR", defaultListenAddr)
}

func orDefault(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

func orDefaultInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

func parseBool(val string) bool {
	b, err := strconv.ParseBool(val)
	return err == nil && b
}
