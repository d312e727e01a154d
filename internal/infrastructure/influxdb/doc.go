// Package influxdb provides the optional device state-history sink.
//
// It wraps the official influxdb-client-go v2 library: every committed
// device cache change (pull, push merge, or set result) becomes one point
// in the device_state measurement, tagged with the device identity and the
// change source. The sink is observability only; the bridge is fully
// functional with it disabled, which is the default.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // errors.Is(err, influxdb.ErrDisabled) means run without it
//	}
//	defer client.Close()
//	bridge.SetRecorder(client)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Writes are non-blocking and batched; async write errors are delivered
// via the SetOnError callback.
package influxdb
