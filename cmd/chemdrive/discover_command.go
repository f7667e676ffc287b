package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"chemdrive/internal/devicecfg"
	"chemdrive/internal/discovery"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan for laboratory instruments",
	}

	var serialAdd string
	var serialType string
	serialCmd := &cobra.Command{
		Use:   "serial",
		Short: "Enumerate USB serial adapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			descriptors, err := discovery.SerialPorts(cmd.Context(), cfg.Discovery.SerialGlobs, nil)
			if err != nil {
				return fmt.Errorf("serial discovery: %w", err)
			}
			return reportDiscovered(cmd.OutOrStdout(), descriptors, serialAdd, serialType)
		},
	}
	serialCmd.Flags().StringVar(&serialAdd, "add", "", "Append discovered devices to this device configuration file")
	serialCmd.Flags().StringVar(&serialType, "device-type", "", "Device type to record for every appended device")

	var ethernetAdd string
	var ethernetType string
	ethernetCmd := &cobra.Command{
		Use:   "ethernet",
		Short: "Probe the local network for Ethernet instruments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			timeout := time.Duration(cfg.Discovery.EthernetTimeout) * time.Second
			descriptors, err := discovery.EthernetDevices(cmd.Context(), cfg.Discovery.EthernetPort, timeout, nil)
			if err != nil {
				return fmt.Errorf("ethernet discovery: %w", err)
			}
			return reportDiscovered(cmd.OutOrStdout(), descriptors, ethernetAdd, ethernetType)
		},
	}
	ethernetCmd.Flags().StringVar(&ethernetAdd, "add", "", "Append discovered devices to this device configuration file")
	ethernetCmd.Flags().StringVar(&ethernetType, "device-type", "", "Device type to record for every appended device")

	discoverCmd.AddCommand(serialCmd, ethernetCmd)
	return discoverCmd
}

func reportDiscovered(out io.Writer, descriptors []discovery.Descriptor, addPath, forcedType string) error {
	if len(descriptors) == 0 {
		fmt.Fprintln(out, "No devices found")
		return nil
	}

	rows := make([][]string, 0, len(descriptors))
	for i, desc := range descriptors {
		driver := desc.Driver()
		if forcedType != "" {
			driver = forcedType
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(desc.Transport),
			desc.Address,
			desc.Label(),
			desc.Serial,
			driver,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Transport", "Address", "Device", "Serial", "Driver"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))

	if addPath == "" {
		return nil
	}
	return appendDiscovered(out, addPath, descriptors, forcedType)
}

func appendDiscovered(out io.Writer, path string, descriptors []discovery.Descriptor, forcedType string) error {
	doc, err := devicecfg.ParseFile(path)
	if errors.Is(err, os.ErrNotExist) {
		doc = devicecfg.New()
	} else if err != nil {
		return err
	}

	appended := 0
	for _, desc := range descriptors {
		typ := forcedType
		if typ == "" {
			typ = desc.Driver()
		}
		if typ == "" {
			fmt.Fprintf(out, "Skipping %s: unrecognized device, pass --device-type to append it\n", desc.Address)
			continue
		}
		name := desc.Model
		if name == "" {
			name = typ
		}
		if !doc.AppendDevice(name, typ, desc.Settings()) {
			fmt.Fprintf(out, "Skipping %s: already configured\n", desc.Address)
			continue
		}
		appended++
	}
	if appended == 0 {
		fmt.Fprintln(out, "Nothing appended")
		return nil
	}
	if err := doc.WriteFile(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Appended %d device(s) to %s\n", appended, path)
	return nil
}
