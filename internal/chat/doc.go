// Package chat defines the chat service surface colorbridge depends on.
//
// A Client streams room events, uploads photos and posts them back to a
// room. Backends live in subpackages:
//
//   - matrix: Matrix homeservers via mautrix
//   - telegram: Telegram Bot API
//   - discord: Discord gateway
//
// Every backend starts streaming after the service's initial snapshot, so
// history already in a room is never replayed as new commands.
package chat
