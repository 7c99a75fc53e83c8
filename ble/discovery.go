package ble

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EndpointMap is the two-level (serviceUUID → (characteristicUUID →
// object path)) cache described in spec.md §4.4, built once per connected
// device and held for the Session's lifetime.
type EndpointMap map[string]map[string]string

// Lookup returns the D-Bus object path for (serviceUUID, charUUID), or
// ErrEndpointNotFound if the pair was not present in the discovered tree.
func (m EndpointMap) Lookup(serviceUUID, charUUID string) (string, error) {
	svc, ok := m[strings.ToLower(serviceUUID)]
	if !ok {
		return "", fmt.Errorf("%w: service %s", ErrEndpointNotFound, serviceUUID)
	}
	path, ok := svc[strings.ToLower(charUUID)]
	if !ok {
		return "", fmt.Errorf("%w: char %s under service %s", ErrEndpointNotFound, charUUID, serviceUUID)
	}
	return path, nil
}

var (
	objectPathRe = regexp.MustCompile(`/org/bluez/hci\d+/dev_[0-9A-Fa-f_]+/service[0-9a-fA-F]+(/char[0-9a-fA-F]+)?`)
	serviceLeafRe = regexp.MustCompile(`^.*/service[0-9a-fA-F]+$`)
	charLeafRe    = regexp.MustCompile(`^.*/char[0-9a-fA-F]+$`)
)

// devicePath derives the BlueZ D-Bus object path for a MAC address on the
// given HCI adapter index, e.g. "D4:E9:F4:E2:B5:8A" on hci0 becomes
// "/org/bluez/hci0/dev_D4_E9_F4_E2_B5_8A".
func devicePath(hciIndex int, mac string) string {
	id := strings.ReplaceAll(strings.ToUpper(mac), ":", "_")
	return fmt.Sprintf("/org/bluez/hci%d/dev_%s", hciIndex, id)
}

// discoverGATTTree builds the full (service → characteristic → path)
// mapping for a connected device by shelling out to busctl rather than
// calling org.freedesktop.DBus.ObjectManager.GetManagedObjects over the
// process's own D-Bus connection.
//
// GetManagedObjects deadlocks in-process once the same connection has been
// used to drive a BLE connect call — a documented BlueZ/godbus interaction,
// not a design choice (see spec.md §9 "Subprocess-driven GATT discovery").
// Running the equivalent query in a short-lived subprocess sidesteps the
// deadlock entirely: the subprocess has its own connection and exits before
// handing back its output.
func discoverGATTTree(ctx context.Context, devPath string, log *logrus.Entry) (EndpointMap, error) {
	paths, err := busctlTree(ctx, devPath)
	if err != nil {
		return nil, fmt.Errorf("busctl tree: %w", err)
	}

	tree := make(EndpointMap)
	// servicePath → serviceUUID, so characteristic leaves can be attributed
	// to their owning service even though busctl tree yields them in
	// depth-first order.
	serviceUUIDs := make(map[string]string)

	for _, p := range paths {
		switch {
		case serviceLeafRe.MatchString(p):
			uuid, err := busctlProperty(ctx, p, "org.bluez.GattService1", "UUID")
			if err != nil {
				log.WithField("path", p).WithError(err).Warn("ble: could not read service UUID")
				continue
			}
			uuid = strings.ToLower(uuid)
			serviceUUIDs[p] = uuid
			if tree[uuid] == nil {
				tree[uuid] = make(map[string]string)
			}
		case charLeafRe.MatchString(p):
			servicePath := p[:strings.LastIndex(p, "/char")]
			svcUUID, ok := serviceUUIDs[servicePath]
			if !ok {
				continue
			}
			uuid, err := busctlProperty(ctx, p, "org.bluez.GattCharacteristic1", "UUID")
			if err != nil {
				log.WithField("path", p).WithError(err).Warn("ble: could not read characteristic UUID")
				continue
			}
			tree[svcUUID][strings.ToLower(uuid)] = p
		}
	}

	return tree, nil
}

// busctlTree lists every D-Bus object path under devPath owned by
// org.bluez, using "busctl tree" as a one-shot subprocess.
func busctlTree(ctx context.Context, devPath string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "busctl", "tree", "org.bluez", "--no-pager")
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "`-|- ")
		if !strings.HasPrefix(line, devPath+"/") {
			continue
		}
		if objectPathRe.MatchString(line) {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// busctlProperty reads a single string D-Bus property via "busctl
// get-property", the same subprocess mechanism used for tree discovery.
func busctlProperty(ctx context.Context, path, iface, prop string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "busctl", "get-property", "org.bluez", path, iface, prop)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}

	// Output is of the form: s "00002a19-0000-1000-8000-00805f9b34fb"
	fields := strings.Fields(string(out))
	if len(fields) < 2 {
		return "", fmt.Errorf("unexpected busctl output: %q", out)
	}
	return strings.Trim(fields[1], `"`), nil
}
