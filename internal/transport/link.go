package transport

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"time"

	ferrors "git.home.luguber.info/inful/inkframe/internal/foundation/errors"
	"git.home.luguber.info/inful/inkframe/internal/logfields"
	"git.home.luguber.info/inful/inkframe/internal/retry"
)

// Link brings the network up for a cycle and down before sleep.
type Link interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	HardwareAddr() (string, error)
}

type linkStatus struct {
	up      bool
	hasAddr bool
	mac     net.HardwareAddr
}

// InterfaceLink manages one OS network interface, optionally running
// commands to raise and lower it (for example "ip link set wlan0 up").
type InterfaceLink struct {
	name        string
	upCommand   []string
	downCommand []string
	timeout     time.Duration
	policy      retry.Policy
	logger      *slog.Logger

	probe func(name string) (linkStatus, error)
	run   func(ctx context.Context, argv []string) error
}

// LinkOptions configures an InterfaceLink.
type LinkOptions struct {
	Interface   string
	UpCommand   []string
	DownCommand []string
	Timeout     time.Duration
	Policy      retry.Policy
	Logger      *slog.Logger
}

func NewInterfaceLink(opts LinkOptions) *InterfaceLink {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &InterfaceLink{
		name:        opts.Interface,
		upCommand:   opts.UpCommand,
		downCommand: opts.DownCommand,
		timeout:     opts.Timeout,
		policy:      opts.Policy,
		logger:      logger,
		probe:       probeInterface,
		run:         runCommand,
	}
}

// Connect raises the interface and waits until it is up with a routable
// IPv4 address, or the connect timeout passes.
func (l *InterfaceLink) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if len(l.upCommand) > 0 {
		if err := l.run(ctx, l.upCommand); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryNetwork, "link up command failed").
				NextCycle().
				WithContext("interface", l.name).Build()
		}
	}

	start := time.Now()
	err := l.policy.Poll(ctx, func() (bool, error) {
		st, err := l.probe(l.name)
		if err != nil {
			return false, err
		}
		if !st.up {
			return false, fmt.Errorf("interface %s is down", l.name)
		}
		if !st.hasAddr {
			return false, fmt.Errorf("interface %s has no address", l.name)
		}
		return true, nil
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "network link did not come up").
			NextCycle().
			WithContext("interface", l.name).
			WithContext("timeout", l.timeout.String()).
			Build()
	}
	l.logger.Info("Network link up", slog.String("interface", l.name), logfields.Since(start))
	return nil
}

// Disconnect lowers the interface when a down command is configured.
func (l *InterfaceLink) Disconnect(ctx context.Context) error {
	if len(l.downCommand) == 0 {
		return nil
	}
	if err := l.run(ctx, l.downCommand); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "link down command failed").
			Warning().
			WithContext("interface", l.name).Build()
	}
	return nil
}

// HardwareAddr returns the interface MAC as lowercase hex without separators.
func (l *InterfaceLink) HardwareAddr() (string, error) {
	st, err := l.probe(l.name)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryHardware, "cannot read interface address").
			Warning().
			NextCycle().
			WithContext("interface", l.name).Build()
	}
	return FormatMAC(st.mac), nil
}

// FormatMAC renders a hardware address as lowercase hex without separators.
func FormatMAC(mac net.HardwareAddr) string { return hex.EncodeToString(mac) }

func probeInterface(name string) (linkStatus, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return linkStatus{}, err
	}
	st := linkStatus{
		up:  iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagRunning != 0,
		mac: iface.HardwareAddr,
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return st, err
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip != nil && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() {
			st.hasAddr = true
			break
		}
	}
	return st, nil
}

func runCommand(ctx context.Context, argv []string) error {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %w (%s)", argv, err, out)
	}
	return nil
}
