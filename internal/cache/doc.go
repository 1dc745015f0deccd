// Package cache stores synthesized speech so that re-running a document only
// pays for chunks whose text, voice or model changed. Entries live in a
// bounded in-memory LRU backed by a zstd-compressed directory on disk.
package cache
