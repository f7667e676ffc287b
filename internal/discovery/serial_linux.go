//go:build linux

package discovery

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"

	"chemdrive/internal/logging"
)

// SerialPorts enumerates USB serial adapters via the kernel's sysfs
// device tree. If the crawl fails (restricted containers, unusual
// mounts) it falls back to plain path globbing.
func SerialPorts(ctx context.Context, globs []string, logger *slog.Logger) ([]Descriptor, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "discovery")

	descriptors, err := crawlSerialPorts(ctx)
	if err != nil {
		logger.Warn("sysfs crawl failed, falling back to glob scan",
			logging.Error(err))
		return serialFromGlobs(globs)
	}
	if len(descriptors) == 0 {
		// Nothing from sysfs can also mean the crawl saw a stripped-down
		// /sys. The glob fallback costs nothing.
		fallback, globErr := serialFromGlobs(globs)
		if globErr == nil && len(fallback) > 0 {
			return fallback, nil
		}
	}
	sortDescriptors(descriptors)
	return dedupeByAddress(descriptors), nil
}

func crawlSerialPorts(ctx context.Context) ([]Descriptor, error) {
	queue := make(chan crawler.Device, 16)
	errs := make(chan error, 1)
	quit := crawler.ExistingDevices(queue, errs, serialMatcher())
	defer close(quit)

	var descriptors []Descriptor
	for {
		select {
		case <-ctx.Done():
			return descriptors, ctx.Err()
		case err := <-errs:
			return descriptors, err
		case device, ok := <-queue:
			if !ok {
				return descriptors, nil
			}
			name := device.Env["DEVNAME"]
			if name == "" {
				continue
			}
			desc := Descriptor{
				Transport: TransportSerial,
				Address:   "/dev/" + name,
			}
			desc.Vendor, desc.Model, desc.Serial = usbIdentity(device.KObj)
			descriptors = append(descriptors, desc)
		}
	}
}

// serialMatcher matches the uevent records of USB serial tty nodes.
// Sysfs uevent files carry DEVNAME but not udev's ID_* properties, so
// the device name pattern is the discriminator.
func serialMatcher() netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{
			"DEVNAME": `tty(USB|ACM)\d+`,
		},
	})
	return rules
}

// usbIdentity walks up from a tty kobject path looking for the USB
// interface's identification attributes.
func usbIdentity(kobj string) (vendor, model, serial string) {
	dir := filepath.Clean(kobj)
	for i := 0; i < 6; i++ {
		dir = filepath.Dir(dir)
		if dir == "/" || dir == "." {
			return
		}
		product := readSysAttr(filepath.Join(dir, "product"))
		if product == "" {
			continue
		}
		return readSysAttr(filepath.Join(dir, "manufacturer")),
			product,
			readSysAttr(filepath.Join(dir, "serial"))
	}
	return
}

func readSysAttr(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
