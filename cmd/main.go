// Virtual Touchpad - control this computer from a touch device
// Serves the controller socket and injects the received input events.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/getlantern/golog"

	"vtouchpad/internal/api"
	"vtouchpad/internal/autostart"
	"vtouchpad/internal/config"
	"vtouchpad/internal/input"
	"vtouchpad/internal/input/robotgo"
	"vtouchpad/internal/logging"
	"vtouchpad/internal/network"
	"vtouchpad/internal/osutils"
	"vtouchpad/internal/tray"
)

var log = golog.LoggerFor("vtouchpad")

var (
	version     = "0.3.0"
	configPath  = flag.String("config", "", "Configuration file (.json, .toml or .yaml)")
	address     = flag.String("address", "", "Interface to bind; overrides server.address")
	port        = flag.Int("port", 0, "Port to listen on; overrides server.port")
	logLevel    = flag.String("log-level", "", "Log level (error or debug); overrides general.log_level")
	drivers     = flag.String("driver", "", "Comma separated input drivers to try, e.g. xorg,robotgo")
	noTray      = flag.Bool("no-tray", false, "Do not show the system tray icon")
	listDrivers = flag.Bool("list-drivers", false, "List the input drivers and whether they can be loaded")
	showVer     = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("vtouchpad version %s\n", version)
		return
	}

	if *logLevel != "" {
		if err := logging.Configure(*logLevel); err != nil {
			log.Fatalf("Invalid -log-level: %v", err)
		}
	}

	cfgMgr, err := config.NewManager(*configPath)
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfgMgr.SetOverride(applyFlags)
	if err := cfgMgr.Load(); err != nil {
		log.Errorf("Failed to load config, using defaults: %v", err)
	}
	configureLogging(cfgMgr.Get())

	candidates := append(input.PlatformCandidates(), robotgo.Candidate())

	if *listDrivers {
		printDrivers(candidates)
		return
	}

	runService(cfgMgr, candidates)
}

// applyFlags overrides cfg with the command line flags that were given.
func applyFlags(cfg *config.Config) {
	if *address != "" {
		cfg.Server.Address = *address
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.General.LogLevel = *logLevel
	}
	if *drivers != "" {
		cfg.Input.Drivers = nil
		for _, name := range strings.Split(*drivers, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Input.Drivers = append(cfg.Input.Drivers, name)
			}
		}
	}
	if *noTray {
		cfg.General.Tray = false
	}
}

func configureLogging(cfg *config.Config) {
	if err := logging.Configure(cfg.General.LogLevel); err != nil {
		log.Errorf("Ignoring log level: %v", err)
	}
}

func printDrivers(candidates []input.Candidate) {
	fmt.Println("Input drivers, in order of preference:")
	for _, c := range candidates {
		value, err := c.Open()
		if err != nil {
			fmt.Printf("  %-10s unavailable: %v\n", c.Name, err)
			continue
		}
		if _, err := input.Verify(c.Name, value); err != nil {
			fmt.Printf("  %-10s invalid: %v\n", c.Name, err)
		} else {
			fmt.Printf("  %-10s ok\n", c.Name)
		}
		if closer, ok := value.(interface{ Close() error }); ok {
			closer.Close()
		}
	}
}

func runService(cfgMgr *config.Manager, candidates []input.Candidate) {
	cfg := cfgMgr.Get()

	candidates, err := input.Select(candidates, cfg.Input.Drivers)
	if err != nil {
		log.Fatalf("Invalid driver selection: %v", err)
	}
	driver, err := input.Resolve(candidates)
	if err != nil {
		log.Fatalf("Failed to load input driver: %v", err)
	}
	defer driver.Close()
	log.Debugf("Using input driver %s", driver.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The file only changes the scroll threshold of new sessions and the
	// log level; listener and driver settings need a restart.
	cfgMgr.RegisterChangeCallback(configureLogging)
	if err := cfgMgr.Watch(ctx); err != nil {
		log.Errorf("Configuration changes will not be applied: %v", err)
	}
	defer cfgMgr.Close()

	if runtime.GOOS == "windows" && cfg.General.FirewallRule {
		go func() {
			if err := osutils.EnsureFirewallRule(cfg.Server.Port); err != nil {
				log.Errorf("Firewall: %v", err)
			}
		}()
	}
	if err := autostart.Apply(cfg.General.StartOnBoot); err != nil {
		log.Errorf("Failed to update start on boot: %v", err)
	}

	server := api.NewServer(cfgMgr, driver, version)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(cfg.Server.Address, cfg.Server.Port)
	}()

	url := network.URL(cfg.Server.Address, cfg.Server.Port)
	fmt.Println(tray.Title(url))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.General.Tray && trayAvailable() {
		runTray(ctx, server, cfg, url, sigCh, serverErr)
	} else {
		select {
		case <-sigCh:
		case err := <-serverErr:
			if err != nil {
				log.Fatalf("Server error: %v", err)
			}
		}
	}

	log.Debugf("Shutting down...")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Shutdown: %v", err)
	}
}

// runTray shows the tray icon until it is quit, a signal arrives or the
// server fails.
func runTray(ctx context.Context, server *api.Server, cfg *config.Config, url string, sigCh <-chan os.Signal, serverErr <-chan error) {
	t := tray.New(url, nil)

	t.AddMenuItem("Open controller", func() {
		osutils.OpenBrowser(url)
	})
	// The QR code is only served over loopback.
	if local, ok := network.LocalURL(cfg.Server.Address, cfg.Server.Port); ok {
		t.AddMenuItem("Show QR code", func() {
			osutils.OpenBrowser(local + api.QRPath)
		})
	}
	clients := t.AddMenuItem(clientsTitle(0), nil)
	t.AddSeparator()
	t.AddMenuItem("Quit", func() {
		t.Stop()
	})

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		last := 0
		for {
			select {
			case <-ticker.C:
				if n := server.Sessions(); n != last {
					last = n
					t.SetItemTitle(clients, clientsTitle(n))
				}
			case <-sigCh:
				t.Stop()
				return
			case err := <-serverErr:
				if err != nil {
					log.Errorf("Server error: %v", err)
				}
				t.Stop()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	t.Run()
}

func clientsTitle(n int) string {
	if n == 1 {
		return "1 client connected"
	}
	return fmt.Sprintf("%d clients connected", n)
}

// trayAvailable reports whether a desktop session can show the tray icon.
func trayAvailable() bool {
	switch runtime.GOOS {
	case "windows", "darwin":
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}
