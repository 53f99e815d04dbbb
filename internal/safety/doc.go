// Package safety classifies shell commands against a denylist policy.
//
// This is advisory denylisting, not sandboxing. The flag check is a raw
// substring scan with no word-boundary awareness, so it both over-blocks
// (a benign argument containing "--force") and under-blocks (aliasing,
// semicolon-chained sub-commands, indirect invocation). That coarseness is
// a known limitation kept for predictability, not a bug to strengthen
// silently.
package safety
