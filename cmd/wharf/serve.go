package main

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"github.com/wharflabs/wharf"
	"github.com/wharflabs/wharf/certs"
	"github.com/wharflabs/wharf/dnsd"
)

var httpsRedirectFlag bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proxy server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&httpsRedirectFlag, "https-redirect", false, "Redirect plaintext requests to HTTPS while the TLS dispatcher is active")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	repo, dir, err := openRegistry()
	if err != nil {
		return err
	}

	manager, err := certs.NewManager(dir)
	if err != nil {
		return fmt.Errorf("setting up certificate authority: %w", err)
	}

	proxy, err := wharf.New(
		wharf.WithConfigDir(dir),
		wharf.WithRepo(repo),
		wharf.WithProvisioner(manager),
	)
	if err != nil {
		return fmt.Errorf("configuring proxy: %w", err)
	}
	defer repo.Close()

	result, err := proxy.Start(wharf.StartOptions{
		HTTPSRedirect: httpsRedirectFlag || proxy.Config.HTTPSRedirect,
	})
	if err != nil {
		return err
	}
	defer proxy.Stop()

	fmt.Printf("http://*.%s -> 127.0.0.1:%d\n", proxy.Config.TLD, result.HTTPPort)
	if result.SSLEnabled {
		fmt.Printf("https://*.%s -> 127.0.0.1:%d\n", proxy.Config.TLD, result.HTTPSPort)
	}
	if result.Warning != "" {
		fmt.Printf("warning: %s\n", result.Warning)
	}

	var g run.Group

	{
		// Start already spawned the dispatchers; this actor just keeps the
		// group alive until another actor returns.
		done := make(chan struct{})
		g.Add(func() error {
			<-done
			return nil
		}, func(error) {
			close(done)
		})
	}

	if proxy.Config.DNSAddr != "" {
		server := dnsd.NewServer(proxy.Config.DNSAddr, proxy.Config.TLD, nil)
		fmt.Printf("DNS responder listening on %s\n", proxy.Config.DNSAddr)
		g.Add(func() error {
			return server.ListenAndServe()
		}, func(error) {
			server.ShutdownContext(context.Background())
		})
	}

	{
		g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))
	}

	err = g.Run()
	var sig run.SignalError
	if errors.As(err, &sig) {
		return nil
	}
	return err
}
