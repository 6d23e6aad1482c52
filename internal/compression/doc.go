// Package compression implements the adaptive compressor: three ordered
// textual compression passes (light, medium, aggressive) applied to a
// chunk until it fits a per-chunk token budget, never producing output
// larger than its input (I6).
package compression
