// Package dedup removes repeated speech from a synthesized audio track.
//
// Text-to-speech engines occasionally re-emit a phrase they have just spoken.
// Given the concatenated track and a timed transcript of it, a Deduplicator
// finds transcript segments that repeat a nearby earlier segment, turns them
// into an EditPlan of time ranges, cuts those ranges out of the audio and
// shifts the timestamps of the surviving segments to match the shorter track.
//
// The work is synchronous and in-memory. Inputs are never modified.
package dedup
