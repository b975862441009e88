// package pipeline provides the lazy, single-pass building blocks playlist recipes are made of.
//
// A [Stream] pairs an iter.Seq2 with the [Kind] of value it yields so generic stages
// (sorting, sampling, chunking) can pass the kind on to their output. [Paginate] turns a
// paginated remote collection into a sequence of items; [Chunk] groups a sequence for
// batch lookups.
//
// Nothing here performs work until the consumer pulls. Stages that must see every
// value before emitting one ([SortBy], [Shuffle]) say so in their docs.
package pipeline
