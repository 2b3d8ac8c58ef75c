package model

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a catalogue product.
type Product struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"nome" db:"nome"`
	Price     float64   `json:"preco" db:"preco"`
	ImageURL  string    `json:"imagem" db:"imagem"`
	CreatedAt time.Time `json:"criado_em" db:"criado_em"`
}

// Variant is a purchasable size/colour combination of a product. Stock is
// tracked per variant, not per product. ProductName, Price and ImageURL are
// populated from the products join and are read-only here.
type Variant struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ProductID   uuid.UUID `json:"produto_id" db:"produto_id"`
	Size        string    `json:"tamanho" db:"tamanho"`
	Color       string    `json:"cor" db:"cor"`
	Stock       int       `json:"estoque" db:"estoque"`
	ProductName string    `json:"nome" db:"-"`
	Price       float64   `json:"preco" db:"-"`
	ImageURL    string    `json:"imagem" db:"-"`
}
