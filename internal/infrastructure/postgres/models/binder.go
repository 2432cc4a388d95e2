package models

type BinderModel struct {
	ID      int64             `gorm:"primaryKey;autoIncrement"`
	Owner   string            `gorm:"not null;uniqueIndex:idx_binders_owner_set"`
	SetID   string            `gorm:"not null;uniqueIndex:idx_binders_owner_set"`
	SetName string            `gorm:"not null"`
	Cards   []BinderCardModel `gorm:"foreignKey:BinderID;references:ID;constraint:OnDelete:CASCADE;"`
}

func (BinderModel) TableName() string {
	return "binders"
}

// BinderCardModel is one card entry of a binder. Rows with quantity 0 are never stored.
type BinderCardModel struct {
	BinderID int64  `gorm:"primaryKey;autoIncrement:false"`
	CardID   string `gorm:"primaryKey"`
	Quantity int    `gorm:"not null;check:quantity > 0"`
	Tradable bool   `gorm:"not null;default:false"`
}

func (BinderCardModel) TableName() string {
	return "binder_cards"
}
