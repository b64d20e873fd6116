package wharf

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/wharflabs/wharf/domain"
)

// WithConfigDir configures the proxy to use the specified configuration
// directory. It creates the directory if it doesn't exist and initializes
// the configuration file using Viper.
func WithConfigDir(appConfigDir string) func(*Proxy) error {
	return func(proxy *Proxy) error {
		_, err := os.ReadDir(appConfigDir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Println("[*] creating config dir")
				err := os.MkdirAll(appConfigDir, 0700)
				if err != nil {
					return fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
				}
			} else {
				return fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
			}
		}
		// At this point, the directory exists or was created successfully
		proxy.ConfigDir = appConfigDir

		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(appConfigDir)
		v.SetDefault("tld", "test")
		v.SetDefault("http_port", 80)
		v.SetDefault("https_port", 443)
		v.SetDefault("https_redirect", false)
		v.SetDefault("dns_addr", "")
		err = v.ReadInConfig()
		if err != nil {
			// need to check if the error is config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				// Config file is not found
				err = v.SafeWriteConfig()
				if err != nil {
					return fmt.Errorf("writing config file : %w", err)
				}
			} else {
				return fmt.Errorf("reading config file : %w", err)
			}
		}
		if err := v.Unmarshal(&proxy.Config); err != nil {
			return fmt.Errorf("unmarshalling config to struct : %w", err)
		}

		proxy.Config.viper = v
		proxy.Config.ConfigDir = appConfigDir
		// Rewrite entire file from struct
		err = v.WriteConfig()
		if err != nil {
			return fmt.Errorf("writing config after unmarshalling : %w", err)
		}
		return nil
	}
}

// WithRepo sets the project registry consumed for hostname resolution.
func WithRepo(repo domain.ProjectRepository) func(*Proxy) error {
	return func(proxy *Proxy) error {
		// First we need to check if there is a repo
		if proxy.Repo != nil {
			if err := proxy.Repo.Close(); err != nil {
				return err
			}
			proxy.Repo = nil
		}
		proxy.Repo = repo
		return nil
	}
}

// WithProvisioner sets the certificate provisioner consumed by the TLS
// dispatcher.
func WithProvisioner(provisioner domain.Provisioner) func(*Proxy) error {
	return func(proxy *Proxy) error {
		proxy.Provisioner = provisioner
		return nil
	}
}

// WithPorts overrides the dispatcher ports. Port 0 binds an ephemeral port,
// which is mainly useful in tests.
func WithPorts(httpPort, httpsPort int) func(*Proxy) error {
	return func(proxy *Proxy) error {
		proxy.Config.HTTPPort = httpPort
		proxy.Config.HTTPSPort = httpsPort
		return nil
	}
}

// WithTLD overrides the domain suffix appended to project names.
func WithTLD(tld string) func(*Proxy) error {
	return func(proxy *Proxy) error {
		if tld == "" {
			return errors.New("tld cannot be empty")
		}
		proxy.Config.TLD = tld
		return nil
	}
}

// WithLogHandler takes a handler function that will be executed on each Log
func WithLogHandler(handler func(log Log) error) func(*Proxy) error {
	return func(proxy *Proxy) error {
		if proxy.OnLog != nil {
			return errors.New("proxy already has a log handler defined")
		}
		proxy.OnLog = handler
		return nil
	}
}
