// ABOUTME: Closet DTOs mirrored from the backend service
// ABOUTME: Clothing items, outfits and outfit wear history (OOTD) entries

package models

// ClothingItem is owned by the backend; the relay reads, patches and deletes by id.
type ClothingItem struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category,omitempty"`
	Brand        string   `json:"brand,omitempty"`
	Color        string   `json:"color,omitempty"`
	Size         string   `json:"size,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	S3URL        string   `json:"s3url,omitempty"`
	LastWorn     string   `json:"last_worn,omitempty"`
	ArchivedDate string   `json:"archived_date,omitempty"`
}

type Outfit struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	S3URL         string         `json:"s3url,omitempty"`
	ClothingItems []ClothingItem `json:"clothing_items,omitempty"`
}

// WearHistoryEntry records that an outfit was worn on a date.
type WearHistoryEntry struct {
	ID       int    `json:"id,omitempty"`
	OutfitID int    `json:"outfit_id"`
	UserID   int    `json:"user_id,omitempty"`
	WornDate string `json:"worn_date"`
}

// WearHistoryItem is an entry joined with its outfit details.
type WearHistoryItem struct {
	WearHistoryEntry
	Outfit Outfit `json:"outfit"`
}

// LogWornRequest is the body of POST /api/outfits/{id}/log
type LogWornRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}
