package shared

import "fmt"

// SyncLockKey builds redis keys guarding writes for one document kind.
func SyncLockKey(kind string) string {
	return fmt.Sprintf("sapsync:lock:%s", kind)
}
