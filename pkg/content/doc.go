// Package content provides the Localized Content Store: the reference text of
// every hexagram in every loaded locale.
//
// Documents are loaded once, validated for completeness across all 64
// hexagrams, and never mutated afterwards.
package content
