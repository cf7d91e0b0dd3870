// Package engine implements the training orchestrator: the nested
// iteration state machine (epoch, dataset mode, data batch, experience
// repetition, communication round) that advances signals in the stream
// handler, serves the declared pipelines in order, drives the distractor
// curriculum and checkpoints run state at epoch boundaries.
//
// The engine exclusively owns the stream handler. It performs no retry and
// no partial-result suppression on module failures: a compute error aborts
// the run so a bad experiment fails fast instead of silently producing
// wrong numbers.
package engine
