package util

func InPlaceFilter[T any](s *[]T, p func(T) bool) {
	i := 0
	for _, e := range *s {
		if p(e) {
			(*s)[i] = e
			i++
		}
	}
	*s = (*s)[:i]
}

// ChunkSlice splits s into consecutive chunks of at most size elements.
// The last chunk holds the remainder.
func ChunkSlice[T any](s []T, size int) [][]T {
	if size <= 0 || len(s) == 0 {
		return nil
	}

	var chunks [][]T
	for start := 0; start < len(s); start += size {
		end := start + size
		if end > len(s) {
			end = len(s)
		}

		chunks = append(chunks, s[start:end])
	}

	return chunks
}
