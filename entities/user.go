package entities

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Username     string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	FirstName    string `gorm:"size:150" json:"first_name"`
	LastName     string `gorm:"size:150" json:"last_name"`
	PasswordHash string `gorm:"not null" json:"-"`
	Avatar       string `json:"avatar,omitempty"`

	Recipes []*Recipe `gorm:"foreignKey:AuthorID"`
	Timestamp
}

// Subscription is directional: SubscriberID follows UserID.
type Subscription struct {
	ID           uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint `gorm:"not null;index;uniqueIndex:idx_user_subscriber" json:"user_id"`
	SubscriberID uint `gorm:"not null;index;uniqueIndex:idx_user_subscriber" json:"subscriber_id"`

	User       *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Subscriber *User `gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE"`
	Timestamp
}
