// Package influxdb exports LaCrosse readings to InfluxDB v2.
//
// The export is optional (influxdb.enabled) and write-only: the gateway
// never reads the series back, and publish decisions do not depend on it.
// Each routed reading becomes one lacrosse_reading point tagged with the
// sensor token and the gate's decision reason.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { log.Warn("influx write", "error", err) })
//	client.WriteReading(gate.Sensor(), reading, decision)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are batched according
// to batch_size and flush_interval and never block the caller.
package influxdb
