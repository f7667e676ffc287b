package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"chemdrive/internal/logging"
)

// lantronixQuery is the Lantronix XPort identity probe. Ethernet-attached
// instruments built on these modules answer it with a status block that
// carries their MAC address.
var lantronixQuery = []byte{0x00, 0x00, 0x00, 0xF6}

const lantronixReplyLen = 30

// EthernetDevices probes every broadcast-capable interface for
// instruments answering the identity query on the given UDP port. The
// probe is sent from each local source address separately because the
// modules only answer queries originating on their own subnet.
func EthernetDevices(ctx context.Context, port int, timeout time.Duration, logger *slog.Logger) ([]Descriptor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "discovery")

	sources, err := broadcastSources()
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, nil
	}

	var (
		mu          sync.Mutex
		descriptors []Descriptor
		wg          sync.WaitGroup
	)
	for _, src := range sources {
		wg.Add(1)
		go func(src broadcastSource) {
			defer wg.Done()
			found, probeErr := probeFrom(ctx, src, port, timeout)
			if probeErr != nil {
				logger.Debug("broadcast probe failed",
					logging.String("source", src.ip.String()),
					logging.Error(probeErr))
				return
			}
			mu.Lock()
			descriptors = append(descriptors, found...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	sortDescriptors(descriptors)
	return dedupeByAddress(descriptors), nil
}

type broadcastSource struct {
	ip        net.IP
	broadcast net.IP
}

func broadcastSources() ([]broadcastSource, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	var sources []broadcastSource
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagBroadcast == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil {
				continue
			}
			sources = append(sources, broadcastSource{
				ip:        ip4,
				broadcast: broadcastAddr(ipnet),
			})
		}
	}
	return sources, nil
}

func broadcastAddr(ipnet *net.IPNet) net.IP {
	ip4 := ipnet.IP.To4()
	mask := ipnet.Mask
	if len(mask) == 16 {
		mask = mask[12:]
	}
	out := make(net.IP, 4)
	for i := range out {
		out[i] = ip4[i] | ^mask[i]
	}
	return out
}

func probeFrom(ctx context.Context, src broadcastSource, port int, timeout time.Duration) ([]Descriptor, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: src.ip})
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", src.ip, err)
	}
	defer conn.Close()

	target := &net.UDPAddr{IP: src.broadcast, Port: port}
	if _, err := conn.WriteToUDP(lantronixQuery, target); err != nil {
		return nil, fmt.Errorf("send probe to %s: %w", target, err)
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	var descriptors []Descriptor
	buf := make([]byte, 256)
	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return descriptors, nil
			}
			return descriptors, err
		}
		if remote.IP.Equal(src.ip) {
			continue
		}
		desc := Descriptor{
			Transport: TransportEthernet,
			Address:   remote.IP.String(),
		}
		if n >= lantronixReplyLen {
			desc.Serial = net.HardwareAddr(buf[24:30]).String()
		}
		descriptors = append(descriptors, desc)
	}
}
