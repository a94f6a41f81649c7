package adapter

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/labelforge/ptouchd/protocol"
)

// Interface class codes
// Reference: http://www.usb.org/developers/defined_class
const (
	IfaceClassPrinter = 0x07
)

// BrotherVID is the USB vendor ID shared by all Brother printers.
const BrotherVID = 0x04F9

// Known P-touch product IDs.
var ptouchModels = map[uint16]string{
	0x2060: "PT-E550W",
	0x2062: "PT-P750W",
	0x20AF: "PT-P710BT",
}

// Info holds the USB descriptor strings of a connected printer.
type Info struct {
	Manufacturer string
	Product      string
	Serial       string
}

// USBTransport talks to a P-touch printer over USB bulk transfers: one OUT
// endpoint for the command stream, one IN endpoint for status frames.
type USBTransport struct {
	device      *gousb.Device
	ctx         *gousb.Context
	outEndpoint *gousb.OutEndpoint
	inEndpoint  *gousb.InEndpoint
	iface       *gousb.Interface
	cfg         *gousb.Config
	isOpen      bool
	mu          sync.Mutex
}

// NewUSBTransport opens a printer by VID/PID.
func NewUSBTransport(vid, pid uint16) (*USBTransport, error) {
	ctx := gousb.NewContext()

	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("open device %04x:%04x: %w", vid, pid, err)
	}
	if device == nil {
		ctx.Close()
		return nil, fmt.Errorf("device %04x:%04x not found", vid, pid)
	}

	return &USBTransport{ctx: ctx, device: device}, nil
}

// NewUSBTransportAuto opens the first connected P-touch printer.
func NewUSBTransportAuto() (*USBTransport, error) {
	ctx := gousb.NewContext()

	devices := FindLabelPrinters(ctx)
	if len(devices) == 0 {
		ctx.Close()
		return nil, errors.New("cannot find a P-touch printer")
	}

	// Keep the first, release the rest.
	for _, dev := range devices[1:] {
		dev.Close()
	}

	return &USBTransport{ctx: ctx, device: devices[0]}, nil
}

// NewUSBTransportSerial opens a P-touch printer by its serial number.
func NewUSBTransportSerial(serial string) (*USBTransport, error) {
	ctx := gousb.NewContext()

	devices := FindLabelPrinters(ctx)
	var match *gousb.Device
	for _, dev := range devices {
		s, err := dev.SerialNumber()
		if err == nil && s == serial && match == nil {
			match = dev
			continue
		}
		dev.Close()
	}

	if match == nil {
		ctx.Close()
		return nil, fmt.Errorf("no P-touch printer with serial %q", serial)
	}

	return &USBTransport{ctx: ctx, device: match}, nil
}

// IsLabelPrinter reports whether a device descriptor matches a supported
// P-touch model.
func IsLabelPrinter(desc *gousb.DeviceDesc) bool {
	if desc == nil || uint16(desc.Vendor) != BrotherVID {
		return false
	}
	_, ok := ptouchModels[uint16(desc.Product)]
	return ok
}

// FindLabelPrinters returns all connected supported P-touch printers.
func FindLabelPrinters(ctx *gousb.Context) []*gousb.Device {
	devices, err := ctx.OpenDevices(IsLabelPrinter)
	if err != nil {
		// OpenDevices can fail on devices it skipped anyway; keep what
		// it managed to open.
		return devices
	}
	return devices
}

// Open claims the printer interface and resolves both bulk endpoints.
func (u *USBTransport) Open() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.isOpen {
		return errors.New("device already open")
	}
	if u.device == nil {
		return errors.New("device not found")
	}

	if runtime.GOOS == "linux" {
		u.device.SetAutoDetach(true)
	}

	cfgNum, err := u.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}

	cfg, err := u.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}

	ifaceNum := -1
	for _, iface := range cfg.Desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassPrinter {
				ifaceNum = iface.Number
				break
			}
		}
		if ifaceNum >= 0 {
			break
		}
	}
	if ifaceNum < 0 {
		cfg.Close()
		return errors.New("no printer interface found")
	}

	iface, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	// Bulk OUT carries the command stream, bulk IN the status frames.
	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if epDesc.Direction == gousb.EndpointDirectionOut && u.outEndpoint == nil {
			if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
				u.outEndpoint = ep
			}
		}
		if epDesc.Direction == gousb.EndpointDirectionIn && u.inEndpoint == nil {
			if ep, err := iface.InEndpoint(epDesc.Number); err == nil {
				u.inEndpoint = ep
			}
		}
	}

	if u.outEndpoint == nil || u.inEndpoint == nil {
		iface.Close()
		cfg.Close()
		u.outEndpoint = nil
		u.inEndpoint = nil
		return errors.New("cannot find bulk command and status endpoints")
	}

	u.iface = iface
	u.cfg = cfg
	u.isOpen = true

	return nil
}

// Write sends command bytes to the printer's bulk OUT endpoint.
func (u *USBTransport) Write(data []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.isOpen {
		return 0, errors.New("device not open")
	}

	n, err := u.outEndpoint.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}

	return n, nil
}

// ReadStatus reads one raw status frame from the bulk IN endpoint, waiting
// at most timeout. A silent printer yields ErrTimeout, never a hang.
func (u *USBTransport) ReadStatus(timeout time.Duration) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.isOpen {
		return nil, errors.New("device not open")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	buf := make([]byte, protocol.StatusReplySize)
	n, err := u.inEndpoint.ReadContext(ctx, buf)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gousb.ErrorTimeout) || errors.Is(err, gousb.TransferTimedOut) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("read failed: %w", err)
	}
	if n == 0 {
		return nil, ErrTimeout
	}

	return buf[:n], nil
}

// Close releases the interface and the USB device.
func (u *USBTransport) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var errs []error

	if u.iface != nil {
		u.iface.Close()
		u.iface = nil
	}
	if u.cfg != nil {
		if err := u.cfg.Close(); err != nil {
			errs = append(errs, err)
		}
		u.cfg = nil
	}
	if u.device != nil {
		if err := u.device.Close(); err != nil {
			errs = append(errs, err)
		}
		u.device = nil
	}
	if u.ctx != nil {
		if err := u.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		u.ctx = nil
	}

	u.outEndpoint = nil
	u.inEndpoint = nil
	u.isOpen = false

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}

	return nil
}

// IsOpen returns whether the device is open
func (u *USBTransport) IsOpen() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.isOpen
}

// Model returns the marketing name of the connected printer, if known.
func (u *USBTransport) Model() string {
	if u.device == nil {
		return ""
	}
	if name, ok := ptouchModels[uint16(u.device.Desc.Product)]; ok {
		return name
	}
	return fmt.Sprintf("unknown (%s)", u.device.Desc.Product)
}

// Info fetches the printer's USB descriptor strings.
func (u *USBTransport) Info() (*Info, error) {
	if u.device == nil {
		return nil, errors.New("device not found")
	}

	manufacturer, err := u.device.Manufacturer()
	if err != nil {
		return nil, fmt.Errorf("read manufacturer: %w", err)
	}
	product, err := u.device.Product()
	if err != nil {
		return nil, fmt.Errorf("read product: %w", err)
	}
	serial, err := u.device.SerialNumber()
	if err != nil {
		return nil, fmt.Errorf("read serial: %w", err)
	}

	return &Info{Manufacturer: manufacturer, Product: product, Serial: serial}, nil
}
