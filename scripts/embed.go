// Package scripts embeds the built-in visibility policies. Each policy is a
// Risor script evaluated once per member; a truthy result hides the member.
// Policies may import the shared helpers in tags.risor.
package scripts

import "embed"

//go:embed *.risor
var FS embed.FS

// Builtin names the embedded policies selectable by name.
var Builtin = []string{"internal", "experimental", "deprecated"}
