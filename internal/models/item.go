package models

import "time"

// Item is a lendable inventory entry. Available is the number of copies on the
// shelf and never drops below zero.
type Item struct {
	ID        string    `bson:"_id" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Author    string    `bson:"author" json:"author"`
	Available int       `bson:"available" json:"available"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
