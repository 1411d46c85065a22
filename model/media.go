package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media represents one uploaded file, attached to at most one contract.
type Media struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	URL          string              `bson:"url" json:"url"`
	Filename     string              `bson:"filename" json:"filename"`
	OriginalName string              `bson:"originalName" json:"originalName"`
	Mimetype     string              `bson:"mimetype" json:"mimetype"`
	Size         int64               `bson:"size" json:"size"`
	PublicID     string              `bson:"publicId" json:"publicId"`
	UploadedBy   *primitive.ObjectID `bson:"uploadedBy,omitempty" json:"uploadedBy,omitempty"`
	ContractID   *primitive.ObjectID `bson:"contractId,omitempty" json:"contractId,omitempty"`
	Tags         []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	IsDeleted    bool                `bson:"isDeleted" json:"isDeleted"`
	DeletedAt    *time.Time          `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt    time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsPDF reports whether the media item holds a PDF document.
func (m *Media) IsPDF() bool {
	if m.Mimetype == "application/pdf" {
		return true
	}
	return len(m.URL) > 4 && m.URL[len(m.URL)-4:] == ".pdf"
}
