package migration

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"recipebook/entities"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		log.Fatalf("Error migrating user database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Subscription{}); err != nil {
		log.Fatalf("Error migrating subscription database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Tag{}, &entities.Ingredient{}); err != nil {
		log.Fatalf("Error migrating reference data: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Recipe{}, &entities.TagRecipe{}, &entities.IngredientRecipe{}); err != nil {
		log.Fatalf("Error migrating recipe database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Cart{}, &entities.Favorite{}); err != nil {
		log.Fatalf("Error migrating collection database: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}
