package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// LockedError is returned by VerifyMasterPassword while the identity is
// locked out. It matches common.ErrAccountLocked.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s; try again after %s", common.ErrAccountLocked, e.Until.Format(time.Kitchen))
}

func (e *LockedError) Unwrap() error { return common.ErrAccountLocked }
