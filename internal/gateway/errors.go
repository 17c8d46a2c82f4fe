package gateway

import "errors"

// Sentinel errors for the gateway.
//
// Errors delivered on Bridge.Fatal wrap one of these together with the
// underlying transport or adapter error:
//
//	if errors.Is(err, gateway.ErrPublishFatal) && errors.Is(err, mqtt.ErrNotConnected) {
//	    // broker went away between readings
//	}
var (
	// ErrPublishFatal indicates a state or discovery message could not be
	// handed to the broker. The gateway stops; it never retries.
	ErrPublishFatal = errors.New("gateway: publish failed")

	// ErrAdapterFailed indicates the radio adapter stopped delivering frames.
	ErrAdapterFailed = errors.New("gateway: adapter failed")

	// ErrConnectionLost indicates the broker connection dropped.
	ErrConnectionLost = errors.New("gateway: broker connection lost")

	// ErrInvalidOptions indicates a Bridge or Scheduler was built without a
	// required collaborator.
	ErrInvalidOptions = errors.New("gateway: invalid options")
)
