package id

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable
// by creation time and safe for use as DynamoDB partition keys.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// ReportNumber returns a human-facing report reference such as RPT-20260310-7K2QXA.
// The suffix is the random tail of a ULID, so it is uppercase Crockford base32.
func ReportNumber(day time.Time) string {
	u := ulid.MustNew(ulid.Timestamp(day), rand.Reader).String()
	return fmt.Sprintf("RPT-%s-%s", day.Format("20060102"), strings.ToUpper(u[len(u)-6:]))
}
