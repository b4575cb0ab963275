package entities

import (
	"time"
)

type Recipe struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	CookingTime int       `gorm:"not null" json:"cooking_time"`
	Image       string    `json:"image,omitempty"`
	ShortLink   string    `gorm:"uniqueIndex;size:50;not null" json:"short_link"`
	PubDate     time.Time `gorm:"autoCreateTime;index" json:"pub_date"`

	Author      *User               `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	TagLinks    []*TagRecipe        `gorm:"foreignKey:RecipeID"`
	Ingredients []*IngredientRecipe `gorm:"foreignKey:RecipeID"`
	Timestamp
}

type TagRecipe struct {
	ID       uint `gorm:"primaryKey;autoIncrement" json:"id"`
	TagID    uint `gorm:"not null;index;uniqueIndex:idx_tag_recipe" json:"tag_id"`
	RecipeID uint `gorm:"not null;index;uniqueIndex:idx_tag_recipe" json:"recipe_id"`

	Tag    *Tag    `gorm:"foreignKey:TagID;constraint:OnDelete:CASCADE"`
	Recipe *Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

type IngredientRecipe struct {
	ID           uint `gorm:"primaryKey;autoIncrement" json:"id"`
	IngredientID uint `gorm:"not null;index;uniqueIndex:idx_ingredient_recipe" json:"ingredient_id"`
	RecipeID     uint `gorm:"not null;index;uniqueIndex:idx_ingredient_recipe" json:"recipe_id"`
	Amount       int  `gorm:"not null" json:"amount"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	Recipe     *Recipe     `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

type Cart struct {
	ID       uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint `gorm:"not null;index;uniqueIndex:idx_cart_user_recipe" json:"user_id"`
	RecipeID uint `gorm:"not null;index;uniqueIndex:idx_cart_user_recipe" json:"recipe_id"`

	User   *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe *Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Timestamp
}

type Favorite struct {
	ID       uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   uint `gorm:"not null;index;uniqueIndex:idx_favorite_user_recipe" json:"user_id"`
	RecipeID uint `gorm:"not null;index;uniqueIndex:idx_favorite_user_recipe" json:"recipe_id"`

	User   *User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Recipe *Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
	Timestamp
}
