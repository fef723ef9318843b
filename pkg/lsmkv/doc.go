// Package lsmkv implements an embedded, persistent, ordered key-value
// store as a log-structured merge tree over immutable memory-mapped
// sorted tables, fronted by an in-memory memtable.
//
// Writes land in the memtable; once it crosses a configured byte
// budget, it is flushed to Level 0 as one or more sorted tables. A
// background goroutine cascades merges down the level chain whenever
// a level holds more tables than its threshold, keeping Level N (N≥1)
// disjoint in key range while Level 0 may overlap.
//
// lsmkv itself is single-shard; package shard builds horizontal
// sharding on top of it by hashing keys across independent stores.
package lsmkv
