package receipt

import (
	"fmt"
	"time"
)

const numberDateLayout = "20060102"

// FormatNumber renders a receipt number: `<PREFIX>-<YYYYMMDD>-<NNNN>`.
// The sequence is zero-padded to 4 digits and widens past 9999.
func FormatNumber(prefix string, date time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, date.UTC().Format(numberDateLayout), seq)
}
