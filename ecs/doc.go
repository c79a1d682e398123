// Package ecs provides ECS adapters for arbor's canvas event system.
//
// The primary adapter is [NewDonburiStore], which bridges canvas events
// (pointer, selection, drag, pinch) into a [Donburi] world as typed events.
// Subscribe to [CanvasEventType] in your ECS systems to receive them.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	app.Canvas("").SetEntityStore(store)
//
// Only events whose target node has a non-zero EntityID are forwarded, plus
// pinch gestures, which are canvas-wide. Set "entityID" on an element to
// link its node to an entity.
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
