// Package sensor holds the publish-decision engine of the LaCrosse gateway.
//
// Every configured LaCrosse sensor gets one Gate. A Gate consumes readings
// decoded from the radio adapter and decides whether the reading should be
// published to MQTT now or suppressed:
//
//	publish = (sinceRead >= PublishInterval && (|ΔT| >= TemperatureDelta || |ΔH| >= HumidityDelta))
//	       || sincePublished >= MinPublishInterval
//
// The first reading of a sensor is always published. The second clause is a
// ceiling: it forces a publish when a sensor has been quiet on MQTT for too
// long, whatever the change magnitude.
//
// # Commit After Send
//
// Evaluate never records a publish. The caller sends the payload and, only
// when the send succeeded, calls MarkPublished with the reading's timestamp:
//
//	gate, err := registry.Route(reading)
//	if err != nil {
//	    return err // *UnknownSensorError: log and drop
//	}
//	decision := gate.Evaluate(reading)
//	if decision.Publish {
//	    if err := publish(gate.Sensor().Token, decision.Payload); err != nil {
//	        return err
//	    }
//	    gate.MarkPublished(reading.ObservedAt)
//	}
//
// # Thread Safety
//
// Each Gate serialises access to its own State with a mutex. Gates share no
// mutable state, so different sensors never contend. Registry is safe for
// concurrent use once registration is finished.
//
// # Time
//
// Nothing in this package reads the wall clock. Elapsed time is computed from
// Reading.ObservedAt, which keeps every decision reproducible in tests.
package sensor
