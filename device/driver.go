package device

import "nocciolo/kernel"

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver.
	DriverInit() *kernel.Error
}

// DetectOrder controls the order in which registered drivers are probed.
// Lower values run first.
type DetectOrder uint8

const (
	// DetectOrderEarly runs before anything that needs ACPI or PCI, e.g.
	// drivers that only need port I/O available from boot.
	DetectOrderEarly DetectOrder = iota
	// DetectOrderBeforeACPI runs after DetectOrderEarly but before the ACPI
	// tables have necessarily been consumed by anything depending on them.
	DetectOrderBeforeACPI
	// DetectOrderACPI runs once ACPI ingest and PCI enumeration have had a
	// chance to populate whatever state a driver's Probe needs.
	DetectOrderACPI
	// DetectOrderLast runs after every other registered driver.
	DetectOrderLast
)

// DriverInfo is the registration record for one driver. Probe is invoked in
// Order; a nil return (or a nil Probe) means the hardware it looks for was
// not found and is skipped.
type DriverInfo struct {
	Order DetectOrder
	Probe func() Driver
}

// DriverInfoList implements sort.Interface, ordering by DetectOrder.
type DriverInfoList []*DriverInfo

func (l DriverInfoList) Len() int           { return len(l) }
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }
func (l DriverInfoList) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }

var registeredDrivers DriverInfoList

// RegisterDriver adds info to the set of drivers probed during hardware
// detection. Intended to be called from a package init() function.
func RegisterDriver(info *DriverInfo) {
	registeredDrivers = append(registeredDrivers, info)
}

// DriverList returns every registered DriverInfo.
func DriverList() DriverInfoList {
	return registeredDrivers
}

// Probe runs Probe() for every registered driver in DetectOrder order and
// returns the ones that reported a match by initializing successfully.
// Drivers whose Probe returns nil (hardware not present) are skipped;
// drivers whose DriverInit fails are logged by the caller-supplied onError
// and also skipped.
func Probe(onError func(info *DriverInfo, drv Driver, err *kernel.Error)) []Driver {
	list := DriverList()
	// Insertion sort: the driver count is small (single digits) and this
	// keeps the package free of a sort.Sort import for such a short slice.
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].Order < list[j-1].Order; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}

	var active []Driver
	for _, info := range list {
		if info.Probe == nil {
			continue
		}
		drv := info.Probe()
		if drv == nil {
			continue
		}
		if err := drv.DriverInit(); err != nil {
			if onError != nil {
				onError(info, drv, err)
			}
			continue
		}
		active = append(active, drv)
	}
	return active
}
