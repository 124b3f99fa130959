package rediskey

import "fmt"

// Sync keys (global convention across services)
const (
	SyncLockPrefix = "sync:lock"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSyncLockKey returns "sync:lock:{userID}"
func BuildSyncLockKey(userID string) string {
	return NamespaceKey(SyncLockPrefix, userID)
}
