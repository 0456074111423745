/*
 * Copyright 2020 Brightgate Inc.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at https://mozilla.org/MPL/2.0/.
 */

package classifier

import (
	"container/heap"

	"github.com/rayhong24/cmpt310-a4/common/zaperr"
)

// HighWeightCount is how many features FindHighWeightFeatures returns.
const HighWeightCount = 100

// Weighted is implemented by methods which keep a per-label feature weight
// vector.  The Naive Bayes model does not.
type Weighted interface {
	Weights(label Label) (map[Feature]float64, bool)
}

// FindHighWeightFeatures returns the HighWeightCount features with the
// largest weight for label.  It fails with ErrLookup unless method carries
// weights for label.
func FindHighWeightFeatures(method interface{}, label Label) ([]Feature, error) {
	w, ok := method.(Weighted)
	if !ok {
		return nil, zaperr.Kindw(ErrLookup,
			"classification method has no feature weights",
			"label", string(label))
	}
	weights, ok := w.Weights(label)
	if !ok {
		return nil, zaperr.Kindw(ErrLookup, "no weights for label",
			"label", string(label))
	}
	return TopFeatures(weights, HighWeightCount), nil
}

type weighted struct {
	weight  float64
	feature Feature
}

/*******************************************************************
 *
 * Implement the functions required by the container/heap interface
 */
type weightHeap []weighted

func (h weightHeap) Len() int { return len(h) }

func (h weightHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	return h[i].feature < h[j].feature
}

func (h weightHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *weightHeap) Push(x interface{}) {
	*h = append(*h, x.(weighted))
}

func (h *weightHeap) Pop() interface{} {
	old := *h
	n := len(old)
	w := old[n-1]
	*h = old[0 : n-1]
	return w
}

// TopFeatures returns the n features with the largest weights, largest
// first.  Equal weights are ordered by feature name, descending.
func TopFeatures(weights map[Feature]float64, n int) []Feature {
	if n <= 0 {
		return []Feature{}
	}

	// Visit in sorted order so that ties are retained reproducibly.
	keys := make([]Feature, 0, len(weights))
	for f := range weights {
		keys = append(keys, f)
	}
	sortFeatures(keys)

	h := make(weightHeap, 0, n+1)
	for _, f := range keys {
		heap.Push(&h, weighted{weights[f], f})
		if h.Len() > n {
			heap.Pop(&h)
		}
	}

	top := make([]Feature, h.Len())
	for i := len(top) - 1; i >= 0; i-- {
		top[i] = heap.Pop(&h).(weighted).feature
	}
	return top
}
