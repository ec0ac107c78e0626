package users

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkowalczyk/filekeeper/internal/common"
)

// fieldCount is the number of colon-separated fields in one ledger line:
// username:secret:publicQuota:privateQuota:publicUsed:privateUsed
const fieldCount = 6

// User is one identity record. Secret is opaque to everything except the
// auth strategy that verifies it; the store never compares it.
type User struct {
	Username     string
	Secret       string
	PublicQuota  int
	PrivateQuota int
	PublicUsed   float64
	PrivateUsed  float64
}

// ParseLine decodes one ledger line into a User. Lines with the wrong field
// count or non-numeric quota fields report common.ErrLedgerCorrupt.
func ParseLine(line string) (*User, error) {
	fields := strings.Split(line, ":")
	if len(fields) != fieldCount {
		return nil, fmt.Errorf("%w: want %d fields, got %d", common.ErrLedgerCorrupt, fieldCount, len(fields))
	}

	pubQuota, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: public quota: %v", common.ErrLedgerCorrupt, err)
	}
	privQuota, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, fmt.Errorf("%w: private quota: %v", common.ErrLedgerCorrupt, err)
	}
	pubUsed, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: public used: %v", common.ErrLedgerCorrupt, err)
	}
	privUsed, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: private used: %v", common.ErrLedgerCorrupt, err)
	}

	return &User{
		Username:     fields[0],
		Secret:       fields[1],
		PublicQuota:  pubQuota,
		PrivateQuota: privQuota,
		PublicUsed:   pubUsed,
		PrivateUsed:  privUsed,
	}, nil
}

// Line encodes the record back into its ledger form.
func (u *User) Line() string {
	return strings.Join([]string{
		u.Username,
		u.Secret,
		strconv.Itoa(u.PublicQuota),
		strconv.Itoa(u.PrivateQuota),
		strconv.FormatFloat(u.PublicUsed, 'g', -1, 64),
		strconv.FormatFloat(u.PrivateUsed, 'g', -1, 64),
	}, ":")
}
