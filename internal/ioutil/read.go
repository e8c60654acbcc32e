package ioutil

import (
	"fmt"
	"io"
)

// ReadLimited reads at most limit bytes from r and returns them as a string.
// A read failure yields a placeholder describing the error rather than an
// empty string, so callers can drop the result straight into a log field.
func ReadLimited(r io.Reader, limit int64) string {
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return string(data)
}
