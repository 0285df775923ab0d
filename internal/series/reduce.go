package series

// Reduce returns at most limit points of s: the newest limit/2 untouched and the older
// prefix thinned by a fixed stride into the remaining budget. s is never modified.
func Reduce[T any](s []T, limit int) []T {
	if limit <= 0 {
		return nil
	}
	if len(s) <= limit {
		return s
	}

	keepRecent := limit / 2
	keepOlder := limit - keepRecent
	recent := s[len(s)-keepRecent:]
	older := s[:len(s)-keepRecent]

	step := len(older) / keepOlder
	if step < 1 {
		step = 1
	}
	sampled := make([]T, 0, len(older)/step+1)
	for i := 0; i < len(older); i += step {
		sampled = append(sampled, older[i])
	}
	if len(sampled) > keepOlder {
		sampled = sampled[len(sampled)-keepOlder:]
	}

	out := make([]T, 0, len(sampled)+len(recent))
	out = append(out, sampled...)
	out = append(out, recent...)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
