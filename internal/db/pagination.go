package db

const pageSizeDefault = 20
const pageSizeMax = 100

// PaginationParams resolves optional offset and limit values. A missing or
// invalid limit falls back to the default; the limit is capped.
func PaginationParams(offset *int, limit *int) (int, int) {
	finalOffset := 0
	finalLimit := pageSizeDefault

	if offset != nil && *offset >= 0 {
		finalOffset = *offset
	}

	if limit != nil && *limit > 0 {
		finalLimit = min(*limit, pageSizeMax)
	}

	return finalOffset, finalLimit
}
