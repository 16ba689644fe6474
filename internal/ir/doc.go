// Package ir provides the core value types shared by every craftloop package:
// elements, canonical pairs, recipes and combination outcomes.
//
// This package contains type definitions and canonicalization only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - A Pair is always canonical (A <= B). Construct pairs with Canon, never
//     with a struct literal.
//   - Element names are NFC-normalized and trimmed at the adapter boundary
//     (NormalizeElement). Case is never folded.
//   - Ordering uses the logical seq counter, never wall-clock timestamps.
package ir
