// Package scene defines the collaborators the node-graph engine talks to
// while compositing a frame: the rendering-resource provider, the stencil
// registry, the video-frame source and the frame clock.
//
// # Ownership
//
// Rendering handles ([Handle]) are owned by the application's rendering
// backend. The engine borrows them for the duration of a frame and may ask
// the provider to release what it loaded, but it never frees a handle
// itself.
//
// # Reference Implementations
//
// The package ships small in-memory collaborators that are useful for
// headless evaluation, tests and the command-line tools:
//
//   - [Recorder]: a [RenderProvider] that serves material uniform tables and
//     records every [DrawCall] it receives
//   - [MemoryStencils]: a [StencilRegistry] with change notification
//   - [StaticVideo]: a [VideoSource] that always returns the same frame
//   - [FixedClock]: a [TimeSource] advanced by a fixed step
//
// # Geometry
//
// Stencil volumes are positioned with a [Transform] (position, rotation,
// scale). [Transform.InverseTransformPoint] maps a world-space point into
// the volume's local space, where the inside tests of the compositor are
// evaluated.
package scene
