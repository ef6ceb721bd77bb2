package models

import (
	"time"

	"gorm.io/gorm"
)

// ConnectionStatus represents the state of a connection between two users.
type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
	ConnectionStatusRejected ConnectionStatus = "rejected"
	ConnectionStatusBlocked  ConnectionStatus = "blocked"
)

// Valid reports whether s is one of the known statuses.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionStatusPending, ConnectionStatusAccepted, ConnectionStatusRejected, ConnectionStatusBlocked:
		return true
	}
	return false
}

// Connection is the single relationship row between two users. Direction is
// kept in RequesterID/ReceiverID; PairLow/PairHigh hold the same two ids in
// ascending order so the unordered pair is unique at the storage level.
type Connection struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RequesterID uint             `gorm:"not null;uniqueIndex:idx_connections_direction;index" json:"requester_id"`
	ReceiverID  uint             `gorm:"not null;uniqueIndex:idx_connections_direction;index" json:"receiver_id"`
	PairLow     uint             `gorm:"not null;uniqueIndex:idx_connections_pair" json:"-"`
	PairHigh    uint             `gorm:"not null;uniqueIndex:idx_connections_pair" json:"-"`
	Status      ConnectionStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	Requester *User `gorm:"foreignKey:RequesterID;constraint:OnDelete:CASCADE" json:"requester,omitempty"`
	Receiver  *User `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"receiver,omitempty"`
}

// TableName specifies the table name for GORM
func (Connection) TableName() string {
	return "connections"
}

// BeforeCreate fills the normalized pair key.
func (c *Connection) BeforeCreate(_ *gorm.DB) error {
	c.PairLow, c.PairHigh = OrderedPair(c.RequesterID, c.ReceiverID)
	return nil
}

// OrderedPair returns a and b in ascending order.
func OrderedPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// Involves reports whether userID is either party of the connection.
func (c *Connection) Involves(userID uint) bool {
	return c.RequesterID == userID || c.ReceiverID == userID
}

// OtherParty returns the id of the party that is not userID.
func (c *Connection) OtherParty(userID uint) uint {
	if c.RequesterID == userID {
		return c.ReceiverID
	}
	return c.RequesterID
}
