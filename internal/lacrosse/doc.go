// Package lacrosse reads LaCrosse IT+ sensor frames from a JeeLink-style
// USB receiver running the LaCrosseITPlusReader firmware.
//
// The receiver prints one ASCII line per decoded transmission:
//
//	OK 9 56 1 4 156 37
//
// which decodes to device 56, 18.0 °C, 37 % humidity, battery fine. Lines
// starting with "[" identify the firmware and are kept as Adapter.Info().
//
// Usage:
//
//	a, err := lacrosse.Open(lacrosse.Config{Device: "/dev/ttyUSB0"})
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	a.SetOnFrame(func(f lacrosse.Frame) { ... })
//	a.SetOnError(func(err error) { ... })
//	if err := a.Configure(lacrosse.RadioSettings{DisableLED: true}); err != nil {
//	    return err
//	}
//	a.StartScan()
//
// Frames are delivered on a single goroutine in the order they were read.
// Read errors are not retried: the error callback fires once and the
// adapter reports itself closed.
package lacrosse
