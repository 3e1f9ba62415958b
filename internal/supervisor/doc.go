// Fudi - Restaurant Data Synchronization for Poster POS
// Copyright 2026 The Fudi Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fudi-pos/fudi

/*
Package supervisor runs Fudi's long-lived components under a suture v4
supervisor tree.

	fudi (root)
	├── data-layer       badger value-log GC
	├── messaging-layer  websocket hub, event bridge, sync scheduler
	└── api-layer        HTTP server

Each layer is its own supervisor, so a crash loop in the messaging layer
backs off without taking the HTTP server down. Supervisor events are
logged through sutureslog using the slog bridge from internal/logging.

Components that do not implement suture.Service directly are adapted by
the wrappers in the services subpackage.
*/
package supervisor
