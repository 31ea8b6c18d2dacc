package rng

import "github.com/skyoxu/rouge/internal/fault"

// Shuffle permutes list in place through src.
//
// A nil slice is treated as an absent list and fails with NIL_ARGUMENT; an
// empty, non-nil slice is a valid no-op.
func Shuffle[T any](src Source, list []T) error {
	if src == nil {
		return fault.NilArgument("src")
	}
	if list == nil {
		return fault.NilArgument("list")
	}
	return src.Shuffle(len(list), func(i, j int) {
		list[i], list[j] = list[j], list[i]
	})
}

// PickRandom returns list[NextInt(0, len(list))].
func PickRandom[T any](src Source, list []T) (T, error) {
	var zero T
	if src == nil {
		return zero, fault.NilArgument("src")
	}
	if len(list) == 0 {
		return zero, fault.InvalidArgument("list", "must not be nil or empty")
	}
	idx, err := src.NextInt(0, len(list))
	if err != nil {
		return zero, err
	}
	return list[idx], nil
}
