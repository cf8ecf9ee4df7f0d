package pipeshell

import "iter"

// Stream is a one-shot, pull-based, ordered sequence of items. The sequence
// ends when the iterator returns. A non-nil error ends the stream: producers
// yield it once and stop, consumers stop pulling when they receive it.
type Stream = iter.Seq2[Item, error]

// Empty returns a stream with no items.
func Empty() Stream {
	return func(yield func(Item, error) bool) {}
}

// FromSlice returns a stream over a private copy of items.
func FromSlice(items []Item) Stream {
	items = copyItems(items)
	return func(yield func(Item, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// Single returns a stream holding exactly one item.
func Single(item Item) Stream {
	return func(yield func(Item, error) bool) {
		yield(item, nil)
	}
}

// Errored returns a stream that fails immediately with err.
func Errored(err error) Stream {
	return func(yield func(Item, error) bool) {
		yield(nil, err)
	}
}

// Collect drains s into a slice. It stops at the first error.
func Collect(s Stream) ([]Item, error) {
	if s == nil {
		return []Item{}, nil
	}
	items := []Item{}
	for item, err := range s {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Map applies fn to each item of s. An error from fn ends the stream.
func Map(s Stream, fn func(Item) (Item, error)) Stream {
	return func(yield func(Item, error) bool) {
		for item, err := range s {
			if err != nil {
				yield(nil, err)
				return
			}
			out, err := fn(item)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Filter keeps the items of s for which keep returns true.
func Filter(s Stream, keep func(Item) (bool, error)) Stream {
	return func(yield func(Item, error) bool) {
		for item, err := range s {
			if err != nil {
				yield(nil, err)
				return
			}
			ok, err := keep(item)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(item, nil) {
				return
			}
		}
	}
}

// Take yields at most n items of s and then stops pulling from it.
func Take(s Stream, n int) Stream {
	return func(yield func(Item, error) bool) {
		if n <= 0 {
			return
		}
		count := 0
		for item, err := range s {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(item, nil) {
				return
			}
			count++
			if count >= n {
				return
			}
		}
	}
}
