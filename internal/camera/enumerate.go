package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pilebones/go-udev/crawler"
)

// Enumerator lists capture devices.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]Device, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc func(ctx context.Context) ([]Device, error)

func (f EnumeratorFunc) Enumerate(ctx context.Context) ([]Device, error) { return f(ctx) }

// UdevEnumerator walks sysfs with the go-udev crawler and keeps video4linux nodes.
type UdevEnumerator struct {
	// SysRoot defaults to /sys.
	SysRoot string
}

// Enumerate returns video4linux devices sorted by path. A missing sysfs is
// reported as ErrEnumerationUnsupported.
func (e UdevEnumerator) Enumerate(ctx context.Context) ([]Device, error) {
	root := e.SysRoot
	if root == "" {
		root = "/sys"
	}
	if _, err := os.Stat(filepath.Join(root, "class")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumerationUnsupported, err)
	}

	queue := make(chan crawler.Device)
	errs := make(chan error, 1)
	quit := crawler.ExistingDevices(queue, errs, nil)
	stop := func() {
		select {
		case quit <- struct{}{}:
		default:
		}
	}

	var devices []Device
	for {
		select {
		case <-ctx.Done():
			stop()
			if len(devices) > 0 {
				return sortDevices(devices), nil
			}
			return nil, ctx.Err()
		case err := <-errs:
			stop()
			if len(devices) > 0 {
				return sortDevices(devices), nil
			}
			return nil, fmt.Errorf("crawl devices: %w", err)
		case dev, ok := <-queue:
			if !ok {
				return sortDevices(devices), nil
			}
			if d, keep := fromCrawler(root, dev); keep {
				devices = append(devices, d)
			}
		}
	}
}

func fromCrawler(root string, dev crawler.Device) (Device, bool) {
	subsystem := dev.Env["SUBSYSTEM"]
	if subsystem != "" && subsystem != "video4linux" {
		return Device{}, false
	}
	if subsystem == "" && !strings.Contains(dev.KObj, "/video4linux/") {
		return Device{}, false
	}
	path := devicePath(dev.Env["DEVNAME"])
	if path == "" {
		return Device{}, false
	}
	sysDir := dev.KObj
	if !strings.HasPrefix(sysDir, root) {
		sysDir = filepath.Join(root, sysDir)
	}
	return Device{
		Path:  path,
		Name:  readAttr(sysDir, "name"),
		KObj:  dev.KObj,
		Index: parseIndex(readAttr(sysDir, "index")),
	}, true
}

func readAttr(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func parseIndex(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func sortDevices(devices []Device) []Device {
	sort.SliceStable(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices
}
