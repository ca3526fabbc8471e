/*
 * MIT License
 *
 * Copyright (c) 2022-2026 Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package processor

import (
	"slices"
	"sync"

	"github.com/zeebo/xxh3"
)

const lockStripes = 64

// stripedLock serializes the work done on the same guid
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

func (s *stripedLock) index(key string) int {
	return int(xxh3.HashString(key) % lockStripes)
}

// lock locks the stripes of keys in ascending order and returns the
// function that releases them
func (s *stripedLock) lock(keys ...string) func() {
	indexes := make([]int, 0, len(keys))
	for _, key := range keys {
		indexes = append(indexes, s.index(key))
	}
	slices.Sort(indexes)
	indexes = slices.Compact(indexes)

	for _, index := range indexes {
		s.stripes[index].Lock()
	}
	return func() {
		for i := len(indexes) - 1; i >= 0; i-- {
			s.stripes[indexes[i]].Unlock()
		}
	}
}
