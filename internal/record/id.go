package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID builds a collision-resistant key: millisecond timestamp plus a
// 9-character random suffix.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
