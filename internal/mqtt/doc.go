// Package mqtt bridges the agent loop onto an MQTT broker so home
// automation systems can drive the phone. Instructions published to
// <prefix>/instruction run through the tool loop; the assistant's
// final text is published to <prefix>/reply.
//
// The bridge uses Eclipse Paho v2's [autopaho] package for connection
// management with automatic reconnection. On every (re-)connect it
// re-subscribes to the instruction topic and publishes a birth message
// ("online") to the availability topic. A will message ensures the
// availability topic transitions to "offline" on unexpected
// disconnects.
package mqtt
