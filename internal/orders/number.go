package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderNumber returns <prefix><YYYYMMDD><6 uppercase hex>.
func GenerateOrderNumber(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return prefix + now.Format("20060102") + strings.ToUpper(suffix)
}
