package entities

// The same ingredient name may recur under a different measurement unit,
// hence the composite unique index instead of a unique name.
type Ingredient struct {
	ID              uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string `gorm:"size:128;not null;index;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"size:64;not null;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`

	Timestamp
}
