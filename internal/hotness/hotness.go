// Package hotness tracks how often result keys are requested.
package hotness

type Interface interface {
	// Inc records one request for key and returns its updated score.
	Inc(key string) float64
	Score(key string) float64
	Reset(keys ...string)
}
