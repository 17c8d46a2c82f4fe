package lacrosse

import (
	"fmt"
)

// Radio commands understood by the LaCrosseITPlusReader firmware. Each is a
// decimal argument followed by a single letter.
const (
	cmdDatarate       = 'r'
	cmdToggleInterval = 't'
	cmdToggleMask     = 'm'
	cmdFrequency      = 'f'
	cmdLED            = 'a'
)

// SetDatarate selects the receive data rate in kbps (e.g. 17241 for 17.241).
// The value 0 toggles the firmware's automatic data rate switching.
func (a *Adapter) SetDatarate(rate int) error {
	return a.command(rate, cmdDatarate)
}

// SetToggleInterval sets the seconds between data rate switches.
func (a *Adapter) SetToggleInterval(seconds int) error {
	return a.command(seconds, cmdToggleInterval)
}

// SetToggleMask selects which data rates take part in switching
// (1 = 17.241 kbps, 2 = 9.579 kbps, 4 = 8.842 kbps, summed).
func (a *Adapter) SetToggleMask(mask int) error {
	return a.command(mask, cmdToggleMask)
}

// SetFrequency sets the receive frequency in kHz (e.g. 868300).
func (a *Adapter) SetFrequency(kHz int) error {
	return a.command(kHz, cmdFrequency)
}

// SetLED turns the activity LED on or off.
func (a *Adapter) SetLED(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return a.command(v, cmdLED)
}

// command writes "<value><letter>" to the adapter.
func (a *Adapter) command(value int, letter byte) error {
	if value < 0 {
		return fmt.Errorf("%w: %c with negative value %d", ErrInvalidCommand, letter, value)
	}
	if !a.IsOpen() {
		return ErrNotOpen
	}

	cmd := fmt.Sprintf("%d%c", value, letter)

	a.writeMu.Lock()
	_, err := a.port.Write([]byte(cmd))
	a.writeMu.Unlock()
	if err != nil {
		a.errorsTotal.Add(1)
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, cmd, err)
	}

	a.logDebug("command sent", "command", cmd)
	return nil
}

// RadioSettings are the optional firmware settings applied at startup.
// Zero values leave the firmware default in place.
type RadioSettings struct {
	Datarate       int
	ToggleInterval int
	ToggleMask     int
	Frequency      int
	DisableLED     bool
}

// Configure sends the non-zero settings and the LED state, in the order
// toggle interval, toggle mask, data rate, frequency, LED.
func (a *Adapter) Configure(s RadioSettings) error {
	steps := []struct {
		value int
		set   func(int) error
	}{
		{s.ToggleInterval, a.SetToggleInterval},
		{s.ToggleMask, a.SetToggleMask},
		{s.Datarate, a.SetDatarate},
		{s.Frequency, a.SetFrequency},
	}
	for _, step := range steps {
		if step.value == 0 {
			continue
		}
		if err := step.set(step.value); err != nil {
			return err
		}
	}
	return a.SetLED(!s.DisableLED)
}
