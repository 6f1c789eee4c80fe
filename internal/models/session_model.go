package models

import "time"

// RefreshSession is one live refresh token. The token itself never touches
// the database; TokenHash is sha256(raw). A row is deleted when the token
// is rotated, expires, or turns out to have been redeemed before.
type RefreshSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;size:64" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// UsedRefreshID records the jti of every refresh token that has been
// redeemed once. The unique index on JTI is what makes redemption
// exactly-once: a second insert of the same jti fails, and that failure is
// treated as replay. Rows are useless after ExpiresAt (the token would
// have died on its own) and are swept out.
type UsedRefreshID struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JTI       string    `gorm:"uniqueIndex;size:36;column:jti" json:"jti"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
