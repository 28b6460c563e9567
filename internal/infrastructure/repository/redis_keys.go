package repository

import "time"

// Every key of a user shares the {username} hash tag so multi-key scripts and
// transactions stay on one cluster slot.

func userTag(username string) string {
	return "{" + username + "}"
}

func mfaKey(username string) string {
	return userTag(username) + "!mfa"
}

func mfaCodesKey(username string) string {
	return userTag(username) + "!mfa:codes"
}

func metadataKey(username string) string {
	return userTag(username) + "!metadata"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
