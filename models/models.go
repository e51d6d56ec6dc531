package models

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Sticker{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&CustomSticker{},
		&Message{},
	}
}
