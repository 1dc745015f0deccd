package textsim

import (
	"fmt"
	"math/bits"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/go-dedup/simhash"
)

// Metric names accepted by MetricByName.
const (
	MetricLevenshtein = "levenshtein"
	MetricSimHash     = "simhash"
)

// Metric scores two already-normalized strings in [0, 1]; 1 means identical.
type Metric interface {
	Name() string
	Similarity(a, b string) float64
}

// MetricByName returns the metric registered under name. The empty name
// selects Levenshtein.
func MetricByName(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MetricLevenshtein:
		return Levenshtein{}, nil
	case MetricSimHash:
		return SimHash{}, nil
	default:
		return nil, fmt.Errorf("unknown similarity metric %q (want %s or %s)", name, MetricLevenshtein, MetricSimHash)
	}
}

// Levenshtein is 1 - editDistance/max(len(a), len(b)) measured in runes.
type Levenshtein struct{}

func (Levenshtein) Name() string { return MetricLevenshtein }

func (Levenshtein) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// SimHash compares 64-bit fingerprints built from word unigrams and bigrams:
// 1 - hamming/64. It is cheaper than Levenshtein on long segments but coarse
// on very short ones.
type SimHash struct{}

func (SimHash) Name() string { return MetricSimHash }

func (SimHash) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	return 1 - float64(HammingDistance(Fingerprint(a), Fingerprint(b)))/64
}

// wordFeatures implements simhash.FeatureSet over normalized words.
type wordFeatures struct {
	words []string
}

func (w wordFeatures) GetFeatures() []simhash.Feature {
	features := make([]simhash.Feature, 0, 2*len(w.words))
	for i, word := range w.words {
		features = append(features, simhash.NewFeature([]byte(word)))
		if i > 0 {
			features = append(features, simhash.NewFeature([]byte(w.words[i-1]+" "+word)))
		}
	}
	return features
}

// Fingerprint computes the simhash of a normalized string.
func Fingerprint(s string) uint64 {
	return simhash.NewSimhash().GetSimhash(wordFeatures{words: strings.Fields(s)})
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
