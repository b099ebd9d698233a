package uploader

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwhyun/mediagate/internal/transcoder"
)

// Target describes where one finished blob goes. Keys are computed per
// upload, never persisted as records.
type Target struct {
	Folder    string
	CallerID  string
	Timestamp time.Time
	Format    transcoder.Format
}

// Key derives the storage key: [folder/]callerID/<millis>-<uuid8>.<ext>.
// The uuid fragment disambiguates two uploads by the same caller inside the
// same millisecond, so keys are always distinct; the store's non-overwrite
// put remains as a backstop.
func (t Target) Key() string {
	var b strings.Builder
	if t.Folder != "" {
		b.WriteString(strings.Trim(t.Folder, "/"))
		b.WriteString("/")
	}
	b.WriteString(t.CallerID)
	b.WriteString("/")
	fmt.Fprintf(&b, "%d-%s%s", t.Timestamp.UnixMilli(), uuid.NewString()[:8], t.Format.Extension())
	return b.String()
}
