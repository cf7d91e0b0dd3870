// Package streams implements the shared run-state store that every module
// and the training engine communicate through.
//
// Values are addressed by colon-delimited hierarchical paths such as
// "modules:speaker:ref" or "signals:epoch". Intermediate levels are created
// on first write, and reading a path that was never written yields nil
// rather than an error, so modules can treat absence as "not yet produced".
//
// Three namespaces are pre-registered on every handler: "signals", which
// survives for the whole run, and "losses_dict"/"logs_dict", which
// accumulate named series during an iteration and are cleared between
// iterations.
package streams
