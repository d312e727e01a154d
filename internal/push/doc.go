// Package push maintains the MQTT subscription that delivers unsolicited
// device reports from the upstream cloud.
//
// The upstream broker authenticates sessions with the account's access
// token and scopes reports to a home-wide wildcard topic. Because the
// broker drops sessions once their founding token expires, the channel
// owns its reconnection lifecycle instead of delegating to paho's
// auto-reconnect: every reconnect is a full teardown followed by a new
// session founded on a freshly-obtained token, debounced to avoid tight
// loops when the broker or the network flaps.
//
// The channel is pure transport. Parsed events are handed to a single
// Handler; routing into the device cache and notifying the accessory host
// belong to the bridge layer.
package push
