// Package mqtt publishes operational status over MQTT using Home
// Assistant discovery, so an Ayla instance shows up as a native HA
// device with availability tracking. Counters (requests, tokens,
// delivered segments) are fed from the internal event bus and reset at
// local midnight.
//
// The publisher uses Eclipse Paho v2's [autopaho] package for
// connection management with automatic reconnection. On every
// (re-)connect it publishes retained discovery config payloads for
// each sensor entity and a birth message ("online") to the
// availability topic. A will message flips the availability topic to
// "offline" on unexpected disconnects.
package mqtt
