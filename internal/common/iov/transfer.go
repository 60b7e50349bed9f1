package iov

import (
	"strconv"
	"strings"

	"github.com/armadaproject/popcon/internal/common/logging"
	"github.com/armadaproject/popcon/internal/common/popcontext"
)

// Transfer drains buffer into timeline in since order, committing an entry only if the timeline is empty or the
// entry differs from the last committed payload. Entries equal to their predecessor carry no new information and
// are dropped but still become the timeline's LastSeen payload. Entries the timeline rejects, because their since
// is not after the last committed one, are logged and leave LastSeen unchanged. It returns the number of entries
// committed.
func Transfer[T Payload[T]](ctx *popcontext.Context, buffer Buffer[T], timeline *Timeline[T]) int {
	added := make([]string, 0, len(buffer))
	for _, entry := range buffer {
		last, ok := timeline.Last()
		if !ok || !last.Payload.Equal(entry.Payload) {
			if err := timeline.Add(entry.Since, entry.Payload); err != nil {
				logging.WithStacktrace(ctx.Log, err).Warnf("Dropping payload with since %s", entry.Since)
				continue
			}
			added = append(added, strconv.FormatUint(uint64(entry.Since), 10))
		}
		timeline.lastSeen = entry.Payload
	}
	ctx.Log.Infof("Transferred cond iovs: %s", strings.Join(added, " "))
	return len(added)
}
