package session

import (
	"fmt"

	"github.com/samber/lo"
)

// Policy supplies the admission-control configuration.
type Policy interface {
	// SongQueueLimit is the per-device limit; zero or negative is unlimited.
	SongQueueLimit() int
	// IsPrivileged reports whether the user is on the access list by
	// nickname or device id.
	IsPrivileged(user UserIdentity) bool
}

// hasMaxSongsInQueue counts the user's queued and downloading entries.
func hasMaxSongsInQueue(st *State, policy Policy, user UserIdentity) bool {
	limit := policy.SongQueueLimit()
	if limit <= 0 || policy.IsPrivileged(user) {
		return false
	}

	queued := lo.CountBy(st.SongQueue, func(q QueueItem) bool {
		return q.UserIdentity.DeviceID == user.DeviceID
	})
	downloading := lo.CountBy(st.DownloadQueue, func(d DownloadQueueItem) bool {
		return d.UserIdentity.DeviceID == user.DeviceID
	})

	return queued+downloading >= limit
}

func canPushToHeadOfQueue(policy Policy, user UserIdentity) bool {
	return policy.IsPrivileged(user)
}

func rejectionReason(user UserIdentity, limit int) string {
	return fmt.Sprintf("%s already has %d song(s) in the queue or downloading", user.Nickname, limit)
}
