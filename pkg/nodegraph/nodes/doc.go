// Package nodes provides the built-in variants of the mixed-reality
// compositing graph: pin, asset and property classes, frame and data nodes,
// and the draw-layer node that composites a material through the scene's
// stencil volumes.
//
// Call [Register] on a fresh registry, or use [NewRegistry].
package nodes
