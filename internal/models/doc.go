// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models provides the data model shared by every component of the
// archival pipeline: the video, channel, playlist, caption and comment
// records the enumerator and archiver produce, plus the durable
// Sync-State record internal/syncstate persists.
//
// Every type here is a plain, serializable record. Remote identifiers
// (video id, channel id, playlist id) are authoritative and are never
// regenerated locally.
package models
