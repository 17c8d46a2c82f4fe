// Package mqtt provides MQTT client connectivity for the LaCrosse gateway.
//
// This package manages:
//   - A single connection attempt to the broker, with optional TLS
//   - Message publishing with QoS and retain control
//   - Last Will and Testament (LWT) on the gateway status topic
//   - Connection health monitoring
//
// # Failure Model
//
// The client never reconnects. A connection that drops after Connect
// returned is reported once through the SetOnDisconnect callback with an
// error wrapping ErrConnectionLost; the gateway treats that as fatal and
// exits so the service manager can restart it with a clean session.
//
// # Topics
//
//	<base_topic>/sensor/<token>/state                  sensor state (not retained)
//	<discovery_prefix>/sensor/<token>/<metric>/config  Home Assistant discovery (retained)
//	<base_topic>/<gateway_id>/status                   online/offline, LWT (retained)
//	<base_topic>/<gateway_id>/health                   heartbeat health (retained)
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) for brokers outside the host
//   - insecure_skip_verify disables certificate checks and is meant for lab setups only
//   - Credentials are best supplied through MQTT_USERNAME and MQTT_PASSWORD
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.SetOnDisconnect(func(err error) { fatal <- err })
//
//	topic := client.Topics().SensorState("kitchen")
//	client.Publish(topic, []byte(`{"temperature":20.5,"humidity":50,"battery":100}`), 0, false)
package mqtt
