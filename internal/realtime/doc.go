// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

// Package realtime implements the event distribution service: authenticated
// websocket channels, the connection/room registry, and the hub that fans
// typed events out to a user's connections, a named room, or everyone.
//
// State is volatile. Nothing is persisted or retried; an event reaches
// exactly the channels live at publish time. There is no external pub/sub
// backplane, so all delivery is within this single process.
package realtime
