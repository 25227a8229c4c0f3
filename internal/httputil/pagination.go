package httputil

import (
	"fmt"
	"strconv"
)

// DefaultLimit is applied when a list request omits the limit parameter.
const DefaultLimit = 20

// ParsePagination parses and normalizes offset/limit query parameters.
// Missing values fall back to 0/DefaultLimit; non-numeric input is an error.
func ParsePagination(offsetStr, limitStr string, maxLimit int) (int, int, error) {
	offset := 0
	limit := 0

	if offsetStr != "" {
		o, err := strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid offset parameter: must be an integer")
		}
		offset = o
	}

	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid limit parameter: must be an integer")
		}
		limit = l
	}

	offset, limit = ClampPagination(offset, limit, maxLimit)
	return offset, limit, nil
}

// ClampPagination bounds an offset/limit pair: negative offsets become 0,
// non-positive limits become DefaultLimit, and limits above maxLimit are
// clamped to maxLimit. Clamping an already-clamped pair is a no-op.
func ClampPagination(offset, limit, maxLimit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit
}
