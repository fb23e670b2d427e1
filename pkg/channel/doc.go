// Package channel is the realtime transport match participants use to agree
// on match state.
//
// # Overview
//
// A channel is a named pub/sub topic, one per match. Publishers Trigger typed
// events on it; subscribers obtain a Handle and Bind callbacks per event
// type. Two implementations satisfy the same Transport contract:
//
//   - Broker: Redis pub/sub (go-redis). Publishing is retried with
//     exponential backoff, so a subscriber may see an envelope twice.
//   - Mock: in-process fan-out with an artificial delay, used for local play
//     and tests.
//
// # Events
//
// Events form a closed set: PlayerJoin, StartGame, PlayerMove, PlayerLeave
// and GameEnd. They travel inside an Envelope carrying a unique id, the
// publisher's per-match sequence number, the origin and a timestamp.
// DecodeEnvelope rejects unknown types.
//
// # Delivery
//
// Each Handle owns one goroutine that invokes bound callbacks in arrival
// order. Envelopes are deduplicated per handle by id (see Seen). Ordering is
// guaranteed within one channel from one publisher; there is no ordering
// across channels.
//
// # Naming
//
// Channel names are namespaced so several deployments can share one Redis:
//
//	hecto:{namespace}:game-{matchID}
package channel
