// Package kmain assembles every subsystem into the kernel's boot sequence.
// It is the only package that knows the dependency order components must
// be brought up in; every other package exposes just its own piece.
package kmain

import (
	"nocciolo/device"
	"nocciolo/device/acpi"
	"nocciolo/device/acpi/table"
	"nocciolo/device/net8254x"
	"nocciolo/device/pci"
	"nocciolo/kernel"
	"nocciolo/kernel/apic"
	"nocciolo/kernel/apic/ioapic"
	"nocciolo/kernel/apic/localapic"
	"nocciolo/kernel/boot"
	"nocciolo/kernel/bootlog"
	"nocciolo/kernel/cpu"
	"nocciolo/kernel/gate"
	"nocciolo/kernel/goruntime"
	"nocciolo/kernel/idt"
	"nocciolo/kernel/keyboard"
	"nocciolo/kernel/kfmt"
	"nocciolo/kernel/mm"
	"nocciolo/kernel/mm/acpimapper"
	"nocciolo/kernel/mm/pagenum"
	"nocciolo/kernel/mm/pmm"
	"nocciolo/kernel/mm/vmm"
	"nocciolo/kernel/pic"
	"nocciolo/kernel/pit"
	"nocciolo/kernel/shutdown"
	"nocciolo/kernel/task"
)

const (
	// legacyIRQTimer and legacyIRQKeyboard are the ISA IRQ lines the PIT and
	// PS/2 keyboard controller fire on before any MADT interrupt source
	// override is applied.
	legacyIRQTimer    = 0
	legacyIRQKeyboard = 1

	// systemTickHz is the target Local APIC timer interrupt rate once
	// calibration completes; one tick per millisecond, matching the rate
	// the PIT square wave ticks the same counter at.
	systemTickHz = 1000

	// calibrationWindowMs is how long CalibrateApicFrequency busy-waits
	// against the PIT to measure the Local APIC bus frequency.
	calibrationWindowMs = 10
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	log = bootlog.New("kmain")
)

// Kmain is the kernel's entry point. The rt0/trampoline code that invokes it
// guarantees a 64-bit long-mode environment with a 4 KiB stack and nothing
// else: no heap, no interrupts, no ACPI. Kmain is not expected to return; if
// it does, the caller halts the CPU.
//
//go:noinline
func Kmain(contract *boot.Contract) {
	if err := contract.Validate(); err != nil {
		kfmt.Panic(err)
	}

	frameAllocator := pmm.NewFrameAllocator(contract)
	mm.SetFrameAllocator(frameAllocator.Allocate)

	mapper := vmm.NewMapper(contract.PhysicalMemoryOffset, mm.FrameFromAddress(cpu.ActivePDT()))
	vmm.SetActiveMapper(mapper)

	if err := goruntime.Init(); err != nil {
		kfmt.Panic(err)
	}

	log.Info("starting nocciolo")

	pages := pagenum.New()
	am := acpimapper.New(mapper, pages)

	ing, err := acpi.New(contract, am)
	if err != nil {
		kfmt.Panic(err)
	}
	ing.InitializeObjects()

	gate.Init()
	idt.Init()

	legacyPic := pic.New(uint8(gate.PIC1Offset), uint8(gate.PIC1Offset)+8)
	legacyPic.Initialize()
	idt.SetEOINotifier(legacyPic)

	lapic, err := localapic.New(am, apic.LocalAPICBaseOverride(ing.MADT()))
	if err != nil {
		kfmt.Panic(err)
	}
	lapic.MaskLegacyLines()
	lapic.Enable()

	ioapics, overrides := apic.ParseMADT(ing.MADT())
	if len(ioapics) > 0 {
		ioa, err := ioapic.New(am, ioapics[0].Address, ioapics[0].GSIBase, lapic.EOIRegisterAddress())
		if err != nil {
			kfmt.Panic(err)
		}
		ioa.SanitizeRouting()
		ioa.RouteGSI(apic.ResolveGSI(overrides, legacyIRQTimer), gate.Timer, true)
		ioa.RouteGSI(apic.ResolveGSI(overrides, legacyIRQKeyboard), gate.Keyboard, true)

		legacyPic.Disable()
		idt.SetEOINotifier(ioa)
	}

	wireSpuriousVectors()

	pitTimer := pit.New()
	pitTimer.Init()
	wireSystemTick(pitTimer)
	calibrateAndArmTimer(pitTimer, lapic)

	cfgSpace := pciConfigSpace(am, ing)
	enumeratePCI(cfgSpace)

	shutdownMachine := shutdown.New(ing.AML(), fadtOrNil(ing))

	runExecutor(shutdownMachine)

	kfmt.Panic(errKmainReturned)
}

// wireSpuriousVectors routes the Local APIC's own spurious-interrupt and
// LVT-error vectors, and the IoApic spurious-vector pool, to handlers that
// do not crash: the Local APIC spurious vector needs no EOI and is ignored,
// LVT errors are logged and acknowledged, and the IoApic pool vectors are
// acknowledged. All of them fire as an ordinary side effect of APIC
// operation and none indicates a broken CPU exception path.
func wireSpuriousVectors() {
	gate.HandleInterrupt(gate.SpuriousLocalApic, 0, func(r *gate.Registers) {})

	gate.HandleInterrupt(gate.LvtError, 0, func(r *gate.Registers) {
		kfmt.Printf("local APIC error interrupt\n")
		idt.NotifyEOI(uint8(gate.LvtError))
	})

	for i := 0; i < gate.IoApicSpuriousCount(); i++ {
		vector := gate.IoApicSpuriousVector(i)
		gate.HandleInterrupt(vector, 0, func(r *gate.Registers) {
			idt.NotifyEOI(uint8(vector))
		})
	}
}

// wireSystemTick routes the timer vector to the PIT tick counter, which
// tracks uptime independently of whatever is currently driving the
// interrupt (PIT directly at boot, Local APIC once armed).
func wireSystemTick(pitTimer *pit.Pit) {
	gate.HandleInterrupt(gate.Timer, 0, func(r *gate.Registers) {
		pitTimer.Tick()
		idt.NotifyEOI(uint8(gate.Timer))
	})
}

// calibrateAndArmTimer measures the Local APIC bus frequency against the
// PIT's known oscillator rate, then reprograms the Local APIC timer to fire
// at systemTickHz.
func calibrateAndArmTimer(pitTimer *pit.Pit, lapic *localapic.LocalApic) {
	const freeRunningCount = 0xFFFFFFFF

	lapic.StartPeriodicTimer(freeRunningCount)
	countsObserved := pitTimer.CalibrateApicFrequency(calibrationWindowMs, lapic.CurrentTimerCount)

	countsPerTick := (countsObserved * 1000) / (calibrationWindowMs * systemTickHz)
	if countsPerTick == 0 {
		countsPerTick = 1
	}

	lapic.StartPeriodicTimer(countsPerTick)
}

// pciConfigSpace prefers the PCIe memory-mapped configuration mechanism
// described by the ACPI MCFG table, falling back to the legacy CF8/CFC port
// mechanism every platform supports when there is no MCFG or its region
// cannot be mapped.
func pciConfigSpace(am *acpimapper.Mapper, ing *acpi.AcpiIngest) pci.ConfigSpace {
	if mcfg := ing.MCFG(); mcfg != nil {
		if segments := pci.SegmentsFromMCFG(mcfg); len(segments) > 0 {
			cfgSpace, err := pci.NewMCFGConfigSpace(am, segments)
			if err != nil {
				log.Warn("PCIe MCFG region mapping failed: %s", err.Message)
			} else {
				return cfgSpace
			}
		}
	}
	return pci.NewLegacyConfigSpace()
}

// enumeratePCI probes function 0 of every PCI bus/device slot and logs the
// functions that are actually present, giving an operator something to confirm the
// configuration mechanism is wired correctly without needing a dedicated
// driver for any specific device class.
func enumeratePCI(cfgSpace pci.ConfigSpace) {
	pci.New(cfgSpace).Enumerate(func(fn pci.Function) bool {
		log.Info("pci %d:%d.%d vendor=%x device=%x class=%x.%x",
			fn.Address.Bus, fn.Address.Device, fn.Address.Function, fn.VendorID(), fn.DeviceID(), fn.ClassCode(), fn.Subclass())
		net8254x.SetCandidate(fn)
		return true
	})

	device.Probe(func(info *device.DriverInfo, drv device.Driver, err *kernel.Error) {
		log.Warn("driver %s: init failed: %s", drv.DriverName(), err.Message)
	})
}

// fadtOrNil returns the FADT if ACPI ingest found one, or nil; shutdown.New
// accepts either and degrades to the hypervisor fast path only when the
// FADT is absent.
func fadtOrNil(ing *acpi.AcpiIngest) *table.FADT {
	fadt, err := ing.FADTOrErr()
	if err != nil {
		return nil
	}
	return fadt
}

// runExecutor wires the keyboard scancode stream into a cooperative task
// that echoes every scancode it receives via kfmt, then hands control to
// the task executor's run loop, which never returns.
func runExecutor(shutdownMachine *shutdown.Machine) {
	executor := task.NewExecutor()
	scancodes := keyboard.NewScancodeStream()
	idt.SetKeyboardSink(scancodes)

	const echoTaskID = 0
	waker := executor.WakerFor(echoTaskID)
	executor.Spawn(task.TaskFunc(func() task.Poll {
		for {
			b, st := scancodes.Poll(waker)
			if st != task.Ready {
				return task.Pending
			}
			kfmt.Printf("scancode: %x\n", b)

			// A scancode of 0x01 (the legacy "Escape" make code) requests a
			// clean shutdown, giving the kernel a way to exit without a
			// dedicated driver for any particular key mapping.
			if b == 0x01 {
				if f := shutdownMachine.Shutdown(); f != nil {
					log.Error("shutdown failed: %s", f.Error())
				}
			}
		}
	}))

	executor.Run()
}
