package entities

type Tag struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:256;not null" json:"name"`
	Slug string `gorm:"uniqueIndex;size:256;not null" json:"slug"`

	Timestamp
}
