package entities

import "time"

// Book is a catalog title with a fixed number of physical copies.
// AvailableCopies moves only through the borrow and return workflow.
type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"index;size:512;not null" json:"title"`
	Author          string    `gorm:"index;size:256;not null" json:"author"`
	Genre           string    `gorm:"index;size:128;not null" json:"genre"`
	ISBN            string    `gorm:"size:20" json:"isbn"`
	CoverImage      string    `gorm:"size:2048" json:"cover_image"`
	TotalCopies     int       `gorm:"not null;default:1;check:total_copies >= 1" json:"total_copies"`
	AvailableCopies int       `gorm:"not null;default:1;check:available_copies >= 0" json:"available_copies"`
	Available       bool      `gorm:"not null" json:"available"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

func (Book) TableName() string {
	return "books"
}

// SyncAvailability recomputes the Available flag from the copy count.
func (b *Book) SyncAvailability() {
	b.Available = b.AvailableCopies > 0
}
