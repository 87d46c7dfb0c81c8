// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hgraph

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false, so the attribute
// lists at the call sites are never formatted.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var logger atomic.Pointer[slog.Logger]

func init() {
	SetLogger(nil)
}

// SetLogger routes hgraph's diagnostics to l. A nil l, the default, turns
// logging off.
//
// Every record carries the handle label under the "handle" key. hgraph
// logs at two levels only:
//   - Debug: one record per lifecycle transition of a handle (registered,
//     created, recreated, destroyed, closed), plus adapter selection and
//     device opening in gpures.
//   - Warn: hook failures. An allocate or release error is logged once with
//     its cause under "err"; a recreation that keeps its old value, or whose
//     allocation failed and left its dependents destroyed, is logged once
//     more.
//
// Panics for misuse of the graph are never logged; they carry a wrapped
// sentinel error instead.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	logger.Store(l)
}

// Logger returns the logger set by SetLogger. gpures and metrics log
// through it.
func Logger() *slog.Logger {
	return logger.Load()
}
