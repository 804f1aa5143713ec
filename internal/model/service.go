package model

// SubService is a catalog entry priced at booking time.
type SubService struct {
	Base
	Name      string  `db:"name" json:"name"`
	BasePrice float64 `db:"base_price" json:"base_price"`
}
