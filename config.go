package wharf

import "github.com/spf13/viper"

// Config holds the proxy configuration persisted as config.yaml under the
// configuration directory.
type Config struct {
	viper         *viper.Viper
	ConfigDir     string `mapstructure:"config_dir"`     // Current config dir
	TLD           string `mapstructure:"tld"`            // Domain suffix appended to project names
	HTTPPort      int    `mapstructure:"http_port"`      // Plaintext dispatcher port
	HTTPSPort     int    `mapstructure:"https_port"`     // TLS dispatcher port
	HTTPSRedirect bool   `mapstructure:"https_redirect"` // Redirect plaintext requests to TLS
	DNSAddr       string `mapstructure:"dns_addr"`       // Optional local DNS responder address, empty disables it
}

func defaultConfig() *Config {
	return &Config{
		TLD:       "test",
		HTTPPort:  80,
		HTTPSPort: 443,
	}
}

// SetHTTPSRedirect updates the redirect mode and persists it when the config
// is file-backed.
func (cfg *Config) SetHTTPSRedirect(enabled bool) error {
	cfg.HTTPSRedirect = enabled
	if cfg.viper == nil {
		return nil
	}
	cfg.viper.Set("https_redirect", enabled)
	return cfg.viper.WriteConfig()
}
