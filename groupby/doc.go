// Package groupby implements a single-pass group-by aggregation kernel for
// sparse numeric observations.
//
// The kernel computes per-group sum, count, and mean for a vector of
// observations and a parallel group assignment, reusing caller-owned
// accumulator buffers across many invocations. This avoids reallocating
// per-group arrays when the same grouping is applied to thousands of
// feature columns in a row.
//
// Two observation representations exist and are chosen explicitly at the
// call site: Dense (a plain slice) and Sparse (index/value pairs for the
// non-zero entries). For linear aggregation the two are interchangeable;
// implicit zeros contribute nothing. Under the log10 transform implicit
// zeros are folded in analytically via a per-call pseudo-count, so the
// sparse path never iterates them individually.
package groupby
