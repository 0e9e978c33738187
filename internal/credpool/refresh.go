package credpool

import (
	"strconv"

	"golang.org/x/sync/singleflight"
)

// refreshGroup ensures at most one usage-limit query is in flight per
// credential index; concurrent GetUsageLimitsFor callers wait on the shared
// result instead of each issuing their own upstream call.
type refreshGroup struct {
	group singleflight.Group
}

func newRefreshGroup() *refreshGroup {
	return &refreshGroup{}
}

func (r *refreshGroup) do(index int, fn func() (interface{}, error)) (interface{}, error) {
	v, err, _ := r.group.Do(strconv.Itoa(index), fn)
	return v, err
}
