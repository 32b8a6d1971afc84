// Package dedup decides whether a casting was already seen recently.
//
// A casting is reduced to a fingerprint (normalized text + " | " + normalized
// OCR text) and compared against a bounded, persisted history, first verbatim
// and then by Similarity. New fingerprints are appended and the oldest
// entries evicted.
//
// Two different castings scoring above the threshold (the same ad reworded
// for a second role, say) are reported as duplicates. That precision loss is
// accepted in exchange for catching reposts with edited phone numbers or
// handles; tune Options.Threshold rather than adding special cases.
package dedup
