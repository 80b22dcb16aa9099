// Package usb checks whether the RTL-SDR radio dongle is attached by
// enumerating USB devices and matching on the vendor ID. Spawning the
// decoder without the dongle just hangs, so the supervisor probes
// before every launch.
package usb

import (
	"github.com/google/gousb"
)

// RealtekVendorID is the vendor ID shared by common RTL-SDR dongles
// (RTL2832U based).
const RealtekVendorID = 0x0bda

// Probe enumerates attached USB devices looking for a vendor ID.
type Probe struct {
	vendorID gousb.ID
}

// NewProbe creates a probe for the given vendor ID; zero means the
// default Realtek ID.
func NewProbe(vendorID uint16) *Probe {
	if vendorID == 0 {
		vendorID = RealtekVendorID
	}
	return &Probe{vendorID: gousb.ID(vendorID)}
}

// Present reports whether at least one matching device is attached.
// Enumeration failures are treated as absent; the caller retries on its
// backoff schedule either way.
func (p *Probe) Present() bool {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == p.vendorID
	})
	for _, dev := range devices {
		dev.Close()
	}
	if err != nil {
		return false
	}
	return len(devices) > 0
}
