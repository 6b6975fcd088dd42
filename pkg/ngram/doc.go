/*
Package ngram provides an in-memory, character-level N-gram toolkit for
generating novel words from a training corpus.

A Model holds one Table per trained order, built from a list of training words.
Several models can be blended into an ActiveSet, each with its own intensity,
and the generation engine walks across orders with a miss-reduction fallback,
optional randomness, seeded starts and duplicate avoidance. A Registry keeps the
current ActiveSet behind an atomic pointer so models can be reloaded from a
Source without interrupting concurrent generation calls.
*/
package ngram
