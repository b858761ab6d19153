package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrEthical07/authpipe"
	"github.com/spf13/viper"
)

// initConfig reads arpctl.yaml when present and enables ARP_ environment
// overrides.
func (a *app) initConfig() error {
	v := a.v
	v.SetDefault("refresh.path", authpipe.DefaultRefreshPath)
	v.SetDefault("refresh.proactive_window", 0)
	v.SetDefault("refresh.keep_session_on_transport_error", false)
	v.SetDefault("cache_bust.enabled", true)
	v.SetDefault("cache_bust.param", authpipe.DefaultCacheParam)
	v.SetDefault("headers", map[string]string{})

	v.SetEnvPrefix("ARP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else if found := findConfigFile(); found != "" {
		v.SetConfigFile(found)
	} else {
		return nil
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	for _, dir := range []string{".", filepath.Join(home, ".arpctl")} {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "arpctl"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func (a *app) sessionDBPath() string {
	if p := a.v.GetString("session_db"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".arpctl", "session.db")
	}
	return filepath.Join(home, ".arpctl", "session.db")
}

// clientConfig maps viper keys onto authpipe.Config and validates the result.
func (a *app) clientConfig() (authpipe.Config, error) {
	v := a.v
	cfg := authpipe.DefaultConfig()
	cfg.Transport.BaseURL = v.GetString("base_url")
	cfg.Transport.Timeout = v.GetDuration("timeout")
	cfg.Transport.UserAgent = "arpctl/1"
	if headers := v.GetStringMapString("headers"); len(headers) > 0 {
		cfg.Transport.DefaultHeaders = headers
	}
	cfg.Refresh.Path = v.GetString("refresh.path")
	cfg.Refresh.ProactiveWindow = v.GetDuration("refresh.proactive_window")
	cfg.Refresh.KeepSessionOnTransportError = v.GetBool("refresh.keep_session_on_transport_error")
	cfg.CacheBust.Enabled = v.GetBool("cache_bust.enabled")
	cfg.CacheBust.Param = v.GetString("cache_bust.param")

	if err := cfg.Validate(); err != nil {
		return authpipe.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
