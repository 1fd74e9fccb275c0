// Package value provides the typed property values exchanged with the host.
//
// Values arrive untagged on the wire. The type is inferred from the JSON shape,
// then re-coerced against the authoritative property type read from the live
// node before boxing. Sending the wrong primitive to the host corrupts it
// silently instead of failing, so coercion is a safety step, not a convenience.
//
// Key constraints:
//   - A bare number is always inferred as Float; an explicit {value, type}
//     envelope is the only way to produce an Int from inference alone.
//   - 2/3/4-element arrays infer as Float2/3/4, never IntN.
//   - An authoritative primitive type id always wins over inference.
//   - Non-finite floats never reach JSON output (see Finite).
//
// This package imports nothing internal except gwerr.
package value
