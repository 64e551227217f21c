// Package mqtt publishes colorbridge state to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained state publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// MQTT is optional. When enabled, home automation systems can follow the
// light colour the chat room has chosen without talking to the gateway.
//
// # Topics
//
//	<prefix>/system/status           online/offline (retained, LWT)
//	<prefix>/light/<address>/state   last applied RGBW (retained)
//	<prefix>/light/<address>/frame   frame posted to chat
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishRetained(client.Topics().LightState(addr), payload)
package mqtt
